package shared

import (
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() {
		getRuntime, startCommand = origRuntime, origStart
	})

	var started *exec.Cmd
	startCommand = func(cmd *exec.Cmd) error {
		started = cmd
		return nil
	}

	tc := []struct {
		goos    string
		wantBin string
		wantErr bool
	}{
		{goos: "darwin", wantBin: "open"},
		{goos: "linux", wantBin: "xdg-open"},
		{goos: "windows", wantBin: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			started = nil
			getRuntime = func() string { return tt.goos }

			err := OpenBrowser("http://localhost:3000/login")
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenBrowser() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if started == nil || len(started.Args) == 0 || started.Args[0] != tt.wantBin {
				t.Errorf("expected %s to be started, got %v", tt.wantBin, started)
			}
		})
	}

	t.Run("empty url", func(t *testing.T) {
		if err := OpenBrowser(""); err == nil {
			t.Error("expected error for empty url")
		}
	})
}
