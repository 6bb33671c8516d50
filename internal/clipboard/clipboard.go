// Package clipboard copies text to the system clipboard via shell commands.
package clipboard

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no clipboard command exists on this system.
var ErrUnavailable = errors.New("clipboard unavailable")

// command resolves the clipboard write command for the current platform.
func command() (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("pbcopy"); err == nil {
			return exec.Command("pbcopy"), nil
		}
	case "linux":
		if _, err := exec.LookPath("wl-copy"); err == nil {
			return exec.Command("wl-copy"), nil
		}
		if _, err := exec.LookPath("xclip"); err == nil {
			return exec.Command("xclip", "-selection", "clipboard"), nil
		}
		if _, err := exec.LookPath("xsel"); err == nil {
			return exec.Command("xsel", "--clipboard", "--input"), nil
		}
	}
	return nil, ErrUnavailable
}

// IsAvailable reports whether a clipboard command exists on this system.
func IsAvailable() bool {
	_, err := command()
	return err == nil
}

// Copy writes text to the system clipboard.
// Returns ErrUnavailable when no clipboard command exists.
func Copy(text string) error {
	cmd, err := command()
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
