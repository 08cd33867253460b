package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status describes how git sees a store file and the plaintext JSON files
// used alongside it
type Status struct {
	IsRepo           bool
	StoreTracked     bool
	TrackedPlaintext []string // Plaintext files committed to git (bad)
	ExposedPlaintext []string // Plaintext files neither tracked nor ignored (warning)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// git check-ignore exits 0 when the path is ignored
	return cmd.Run() == nil
}

// Check inspects storePath and any plaintext files. Paths are resolved
// against the directory holding the store.
func Check(storePath string, plaintext ...string) *Status {
	workDir := filepath.Dir(storePath)
	status := &Status{}

	if !IsGitRepo(workDir) {
		return status
	}
	status.IsRepo = true
	status.StoreTracked = IsTracked(workDir, filepath.Base(storePath))

	for _, file := range plaintext {
		rel := file
		if abs, err := filepath.Abs(file); err == nil {
			if r, err := filepath.Rel(workDir, abs); err == nil {
				rel = r
			}
		}

		switch {
		case IsTracked(workDir, rel):
			status.TrackedPlaintext = append(status.TrackedPlaintext, file)
		case !IsIgnored(workDir, rel):
			status.ExposedPlaintext = append(status.ExposedPlaintext, file)
		}
	}
	return status
}

// Format renders status for display. It returns an empty string outside a
// git repository.
func Format(storePath string, status *Status) string {
	if !status.IsRepo {
		return ""
	}

	name := filepath.Base(storePath)
	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if status.StoreTracked {
		fmt.Fprintf(&result, "   ok: %s is tracked by git\n", name)
	} else {
		fmt.Fprintf(&result, "   info: %s not tracked (it is encrypted and safe to commit)\n", name)
	}

	for _, file := range status.TrackedPlaintext {
		fmt.Fprintf(&result, "   error: plaintext %s is tracked by git (run: git rm --cached %s)\n", file, file)
	}
	for _, file := range status.ExposedPlaintext {
		fmt.Fprintf(&result, "   warning: plaintext %s not in .gitignore\n", file)
	}

	return result.String()
}
