package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("malformed model output", func() {
	var tmpDir, repoDir string
	var proc *exec.Cmd

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "vigil-malformed-*")
		Expect(err).NotTo(HaveOccurred())

		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		runGit(tmpDir, "init", repoDir)
		runGit(repoDir, "checkout", "-b", "main")
		writeFile(filepath.Join(repoDir, "main.go"), "package main\nfunc main() {}\n")
		runGit(repoDir, "add", "main.go")
		runGit(repoDir, "commit", "-m", "initial commit")
	})

	AfterEach(func() {
		if proc != nil && proc.Process != nil {
			proc.Process.Kill()
			proc.Wait()
		}
		cleanupTestRepo(tmpDir)
	})

	It("recovers via the reformat retry after one malformed reply", func() {
		server := newStubLLM(
			`{"data": []}`, // startup probe
			chatResponse("not valid json at all"),
			chatResponse(`{"issues": [{"file": "main.go", "line_number": 2, "description": "empty main body", "suggested_fix": "add logic"}]}`),
		)
		defer server.Close()

		writeConfig(repoDir, server.URL, []string{"Flag empty function bodies."})
		// writeConfig's group only matches *.cpp; add one for main.go, and
		// leave main.go uncommitted-modified so the watcher reports it.
		existing, _ := os.ReadFile(filepath.Join(repoDir, "vigil.toml"))
		writeFile(filepath.Join(repoDir, "vigil.toml"), string(existing)+"\n[[checks]]\npattern = \"*.go\"\nchecks = [\"Flag empty function bodies.\"]\n")
		writeFile(filepath.Join(repoDir, "main.go"), "package main\n\nfunc main() {}\n")

		proc = exec.Command(binaryPath, repoDir, "--config", filepath.Join(repoDir, "vigil.toml"))
		Expect(proc.Start()).To(Succeed())

		reportPath := filepath.Join(repoDir, "code_scanner_results.md")
		Eventually(func() string {
			data, _ := os.ReadFile(reportPath)
			return string(data)
		}, 20*time.Second, 200*time.Millisecond).Should(ContainSubstring("empty main body"))
	})
})
