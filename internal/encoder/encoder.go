// Package encoder runs the external encoding tool. The tool is opaque: the
// only contract is the argument list passed in and the process exit code,
// with stderr captured as diagnostic text.
package encoder

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Invoker executes one encoder invocation synchronously.
type Invoker struct{}

// Invoke runs bin with args and waits for it to exit. It returns true only
// when the process exits with status 0. All failure modes (launch error,
// non-zero exit) are folded into ok=false plus the best diagnostic text
// available; Invoke never returns an error. A failed invocation may leave a
// truncated destination file behind; that is not cleaned up here.
func (Invoker) Invoke(bin string, args []string) (ok bool, diagnostic string) {
	cmd := exec.Command(bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := stderr.String()
		if diag == "" {
			diag = err.Error()
		}
		return false, diag
	}
	return true, stderr.String()
}

// Check verifies that bin is a runnable encoder by invoking it with
// -version and returning the first line of its output.
func Check(bin string) (string, error) {
	cmd := exec.Command(bin, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// FindDefault locates an ffmpeg binary: first next to the running
// executable, then on PATH. Falls back to the bare name so the OS resolves
// it at invocation time.
func FindDefault() string {
	names := []string{"ffmpeg"}
	if runtime.GOOS == "windows" {
		names = []string{"ffmpeg.exe", "ffmpeg"}
	}

	if self, err := os.Executable(); err == nil {
		dir := filepath.Dir(self)
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
				return candidate
			}
		}
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return "ffmpeg"
}
