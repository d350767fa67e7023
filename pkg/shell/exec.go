package shell

import (
	"os/exec"
	"strings"
)

// We prefer to return stderr over the process exit code
type ExitErrorVerbose struct {
	E exec.ExitError
}

func (e ExitErrorVerbose) Error() string {
	if len(e.E.Stderr) != 0 {
		return string(e.E.Stderr)
	}
	return e.E.Error()
}

// Run executes a program and returns its stdout.
// On a non-zero exit we return the stderr text as the error, because tools
// like ffmpeg and ffprobe put the interesting failure there.
func Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", ExitErrorVerbose{*exitErr}
		}
		return "", err
	}
	return string(out), nil
}

// RunTrimmed is Run with surrounding whitespace stripped from stdout.
// Single-value ffprobe queries end with a newline that nobody wants.
func RunTrimmed(name string, args ...string) (string, error) {
	out, err := Run(name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
