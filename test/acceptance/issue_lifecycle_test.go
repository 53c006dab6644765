package acceptance_test

import (
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("issue lifecycle", func() {
	var tmpDir, repoDir string
	var proc *exec.Cmd

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "vigil-lifecycle-*")
		Expect(err).NotTo(HaveOccurred())

		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		runGit(tmpDir, "init", repoDir)
		runGit(repoDir, "checkout", "-b", "main")
		writeFile(filepath.Join(repoDir, "main.cpp"), "int main() { return 0; }\n")
		runGit(repoDir, "add", "main.cpp")
		runGit(repoDir, "commit", "-m", "initial commit")
	})

	AfterEach(func() {
		if proc != nil && proc.Process != nil {
			proc.Process.Kill()
			proc.Wait()
		}
		cleanupTestRepo(tmpDir)
	})

	It("detects an issue in a modified file and writes it to the report", func() {
		server := newStubLLM(
			chatResponse(`{"issues": [{"file": "main.cpp", "line_number": 1, "description": "missing return value check", "suggested_fix": "check errno"}]}`),
		)
		defer server.Close()

		writeConfig(repoDir, server.URL, []string{"Flag unchecked error codes."})
		// Only uncommitted changes are scanned, so modify the committed file.
		writeFile(filepath.Join(repoDir, "main.cpp"), "int main() { int rc = run(); return 0; }\n")

		proc = exec.Command(binaryPath, repoDir, "--config", filepath.Join(repoDir, "vigil.toml"))
		Expect(proc.Start()).To(Succeed())

		reportPath := filepath.Join(repoDir, "code_scanner_results.md")
		Eventually(func() string {
			data, _ := os.ReadFile(reportPath)
			return string(data)
		}, 20*time.Second, 200*time.Millisecond).Should(ContainSubstring("missing return value check"))
	})
})

func writeConfig(repoDir, llmURL string, prompts []string) {
	u, err := url.Parse(llmURL)
	Expect(err).NotTo(HaveOccurred())
	host, portStr, err := splitHostPort(u.Host)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(portStr)
	Expect(err).NotTo(HaveOccurred())

	var prompLines strings.Builder
	for _, p := range prompts {
		prompLines.WriteString("\"" + p + "\", ")
	}

	content := `
[llm]
backend = "openai-compatible"
host = "` + host + `"
port = ` + strconv.Itoa(port) + `
model = "test-model"
context_limit = 4096

[[checks]]
pattern = "*.cpp"
checks = [` + prompLines.String() + `]
`
	writeFile(filepath.Join(repoDir, "vigil.toml"), content)
}

func splitHostPort(hostport string) (string, string, error) {
	idx := strings.LastIndex(hostport, ":")
	if idx < 0 {
		return hostport, "", nil
	}
	return hostport[:idx], hostport[idx+1:], nil
}
