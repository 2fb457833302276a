package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

// OpenBrowser opens the default system browser to the specified URL.
//
// Used to send the user to the web app's login view once a session can't be recovered.
func OpenBrowser(url string) error {
	if url == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}

	var cmd *exec.Cmd
	switch rt := getRuntime(); rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
