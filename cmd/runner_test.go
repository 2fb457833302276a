package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/studyflow/internal/server"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
	tu "github.com/desertthunder/studyflow/internal/testing"
)

type env struct {
	srv    *server.Server
	runner *Runner
	output *bytes.Buffer
	opened []string
}

// newEnv starts the in-memory API and a runner pointed at it.
func newEnv(t *testing.T) *env {
	t.Helper()

	logger := shared.NewLogger(&bytes.Buffer{})
	srv, err := server.New(shared.ServerConfig{}, logger, server.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	db, err := shared.OpenMigrated(shared.DatabaseConfig{Path: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.API.BaseURL = ts.URL + srv.Prefix()
	config.API.WebURL = "http://web.test"

	e := &env{srv: srv, output: &bytes.Buffer{}}
	e.runner = NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
		Output: e.output,
		DB:     db,
		OpenBrowser: func(url string) error {
			e.opened = append(e.opened, url)
			return nil
		},
	})
	return e
}

func (e *env) run(args ...string) error {
	e.output.Reset()
	app := &cli.Command{
		Name:     "sf",
		Commands: e.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"sf"}, args...))
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := e.run(args...); err != nil {
		t.Fatalf("sf %s: %v", strings.Join(args, " "), err)
	}
	return e.output.String()
}

func (e *env) login(t *testing.T) {
	t.Helper()
	e.mustRun(t, "auth", "login", "--email", server.DemoEmail, "--password", server.DemoPassword)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.openBrowser == nil {
				t.Error("expected default browser opener")
			}
		})

		t.Run("Close without a database", func(t *testing.T) {
			if err := NewRunner(RunnerOpts{}).Close(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		runner.writePlain("hello %s\n", "world")
		runner.writePlainln("done")
		runner.writePlainHeader("Title")

		result := output.String()
		if !strings.HasPrefix(result, "hello world\n\ndone\n") {
			t.Errorf("unexpected output %q", result)
		}
		if !strings.Contains(result, "═\nTitle\n═") {
			t.Errorf("expected header, got %q", result)
		}
		if err := NewRunner(RunnerOpts{Output: &tu.FWriter{}}).writePlain("x"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("splitAddr", func(t *testing.T) {
		host, port, err := splitAddr("0.0.0.0:9000")
		if err != nil || host != "0.0.0.0" || port != 9000 {
			t.Errorf("got %q %d %v", host, port, err)
		}
		if _, _, err := splitAddr("localhost"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
		if _, _, err := splitAddr(":http"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid port, got %v", err)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("auth", func(t *testing.T) {
		e := newEnv(t)

		out := e.mustRun(t, "auth", "status")
		if !strings.Contains(out, "Signed out") {
			t.Errorf("expected signed out status, got %q", out)
		}

		err := e.run("auth", "login", "--email", server.DemoEmail, "--password", "wrong-password")
		if !errors.Is(err, services.ErrInvalidCredentials) {
			t.Errorf("expected invalid credentials, got %v", err)
		}

		e.login(t)
		if !strings.Contains(e.output.String(), "Signed in as Demo Student") {
			t.Errorf("unexpected login output %q", e.output.String())
		}

		out = e.mustRun(t, "auth", "status")
		if !strings.Contains(out, "✓ Signed in") {
			t.Errorf("expected signed in status, got %q", out)
		}

		out = e.mustRun(t, "auth", "me", "--json")
		if !strings.Contains(out, server.DemoEmail) {
			t.Errorf("expected user JSON, got %q", out)
		}

		e.mustRun(t, "auth", "logout")
		out = e.mustRun(t, "auth", "status")
		if !strings.Contains(out, "Signed out") {
			t.Errorf("expected signed out after logout, got %q", out)
		}
	})

	t.Run("login is missing a password", func(t *testing.T) {
		e := newEnv(t)
		t.Setenv("STUDYFLOW_PASSWORD", "")

		err := e.run("auth", "login", "--email", server.DemoEmail)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})

	t.Run("session survives a new runner", func(t *testing.T) {
		e := newEnv(t)
		e.login(t)

		next := NewRunner(RunnerOpts{
			Config: e.runner.config,
			Logger: e.runner.logger,
			Output: e.output,
			DB:     e.runner.db,
		})
		e.runner = next

		out := e.mustRun(t, "auth", "me")
		if !strings.Contains(out, server.DemoEmail) {
			t.Errorf("expected stored session to be reused, got %q", out)
		}
	})

	t.Run("feeds", func(t *testing.T) {
		e := newEnv(t)
		e.login(t)

		out := e.mustRun(t, "feed", "home", "--pages", "2")
		if !strings.Contains(out, "home (20 posts)") {
			t.Errorf("expected two pages of the home feed, got %q", out)
		}

		out = e.mustRun(t, "feed", "community", "react")
		if !strings.Contains(out, "community/react (10 posts)") {
			t.Errorf("expected one page of react, got %q", out)
		}
		if !strings.Contains(out, "--pages 2") {
			t.Errorf("expected a hint for more pages, got %q", out)
		}

		err := e.run("feed", "community")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}

		err = e.run("feed", "community", "no-such-community")
		if !errors.Is(err, shared.ErrCommunityNotFound) {
			t.Errorf("expected community not found, got %v", err)
		}

		out = e.mustRun(t, "feed", "exports")
		if !strings.Contains(out, "No exports yet") {
			t.Errorf("unexpected exports output %q", out)
		}
	})

	t.Run("posts and comments", func(t *testing.T) {
		e := newEnv(t)
		e.login(t)

		out := e.mustRun(t, "posts", "create", "--community", "go", "--tag", "question", "How do I close a channel twice?")
		if !strings.Contains(out, "Posted in c/go") {
			t.Errorf("unexpected create output %q", out)
		}

		out = e.mustRun(t, "feed", "community", "--json", "go")
		if !strings.Contains(out, "close a channel twice") {
			t.Errorf("expected new post in community feed, got %q", out)
		}

		err := e.run("posts", "create", "--community", "go")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing content, got %v", err)
		}
	})

	t.Run("communities", func(t *testing.T) {
		e := newEnv(t)
		e.login(t)

		out := e.mustRun(t, "communities", "list")
		for _, id := range []string{"react", "python", "go"} {
			if !strings.Contains(out, id) {
				t.Errorf("expected %s in %q", id, out)
			}
		}

		e.mustRun(t, "c", "join", "python")
		out = e.mustRun(t, "communities", "get", "python")
		if !strings.Contains(out, "✓ Joined") {
			t.Errorf("expected joined community, got %q", out)
		}

		e.mustRun(t, "c", "leave", "python")
		out = e.mustRun(t, "communities", "get", "python")
		if strings.Contains(out, "✓ Joined") {
			t.Errorf("expected community to be left, got %q", out)
		}

		out = e.mustRun(t, "communities", "create", "--name", "Rust Learners", "--tags", "rust, systems")
		if !strings.Contains(out, "Rust Learners") || !strings.Contains(out, "rust, systems") {
			t.Errorf("unexpected create output %q", out)
		}
	})

	t.Run("api", func(t *testing.T) {
		e := newEnv(t)
		e.login(t)

		out := e.mustRun(t, "api", "get", "--json", "/users/me")
		if !strings.Contains(out, `"email":"`+server.DemoEmail+`"`) {
			t.Errorf("expected compact user JSON, got %q", out)
		}

		err := e.run("api", "post", "--data", "{not json", "/posts")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}

		err = e.run("api", "get", "/communities/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected API request error, got %v", err)
		}
	})

	t.Run("expired session opens the login page", func(t *testing.T) {
		e := newEnv(t)
		e.runner.config.API.OpenLoginOnExpiry = true
		e.login(t)

		e.srv.ExpireSessions()

		err := e.run("feed", "home")
		if !errors.Is(err, services.ErrSessionExpired) {
			t.Fatalf("expected session expired, got %v", err)
		}
		if !strings.Contains(e.output.String(), "Session expired") {
			t.Errorf("expected expiry notice, got %q", e.output.String())
		}
		if len(e.opened) != 1 || e.opened[0] != "http://web.test/login" {
			t.Errorf("expected login page to open once, got %v", e.opened)
		}
	})

	t.Run("setup config", func(t *testing.T) {
		e := newEnv(t)
		e.runner.configPath = filepath.Join(t.TempDir(), "config.toml")

		e.mustRun(t, "setup", "config")
		tu.AssertFileExists(t, e.runner.configPath)
	})
}
