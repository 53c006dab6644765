package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ignore groups", func() {
	var tmpDir, repoDir string
	var proc *exec.Cmd

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "vigil-ignore-*")
		Expect(err).NotTo(HaveOccurred())

		repoDir = filepath.Join(tmpDir, "repo")
		Expect(os.MkdirAll(repoDir, 0755)).To(Succeed())
		runGit(tmpDir, "init", repoDir)
		runGit(repoDir, "checkout", "-b", "main")
		writeFile(filepath.Join(repoDir, "README.md"), "# hello\n")
		runGit(repoDir, "add", "README.md")
		runGit(repoDir, "commit", "-m", "initial commit")
	})

	AfterEach(func() {
		if proc != nil && proc.Process != nil {
			proc.Process.Kill()
			proc.Wait()
		}
		cleanupTestRepo(tmpDir)
	})

	It("never runs checks against files matched by an ignore group", func() {
		server := newStubLLM(
			chatResponse(`{"issues": [{"file": "README.md", "line_number": 1, "description": "should not appear", "suggested_fix": ""}]}`),
		)
		defer server.Close()

		writeConfig(repoDir, server.URL, []string{"Flag anything."})
		// Append an ignore group covering *.md on top of the check group.
		existing, _ := os.ReadFile(filepath.Join(repoDir, "vigil.toml"))
		appended := string(existing) + "\n[[checks]]\npattern = \"*.md\"\nchecks = []\n"
		writeFile(filepath.Join(repoDir, "vigil.toml"), appended)

		writeFile(filepath.Join(repoDir, "README.md"), "# hello again\n")

		proc = exec.Command(binaryPath, repoDir, "--config", filepath.Join(repoDir, "vigil.toml"))
		Expect(proc.Start()).To(Succeed())

		reportPath := filepath.Join(repoDir, "code_scanner_results.md")
		Consistently(func() string {
			data, _ := os.ReadFile(reportPath)
			return string(data)
		}, 3*time.Second, 300*time.Millisecond).ShouldNot(ContainSubstring("should not appear"))
	})
})
