package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.connect(); err != nil {
		return err
	}

	version, err := shared.MigrationVersion(r.db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
}

// SetupConfig writes config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Config written to %s\n", path)
}

// SetupImportCookies stores session cookies taken from a browser cURL command,
// for accounts signed in through the web app.
func (r *Runner) SetupImportCookies(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var session *shared.CurlSession
	var err error
	if curlFile != "" {
		session, err = shared.ParseCurlFile(curlFile)
	} else {
		session, err = shared.ParseCurlCommand(curlCmd)
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}

	cookies := session.Cookies()
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies found in cURL command", shared.ErrInvalidInput)
	}

	svc, err := r.connect()
	if err != nil {
		return err
	}

	if session.URL != "" {
		if u, err := url.Parse(session.URL); err == nil {
			if base, _ := url.Parse(r.config.API.BaseURL); base != nil && base.Host != u.Host {
				r.logger.Warn("cURL host differs from api.base_url", "curl", u.Host, "api", base.Host)
			}
		}
	}

	if err := r.jar.Import(cookies); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}
	if err := r.sessions.SetLoggedIn(r.config.API.BaseURL, true); err != nil {
		return err
	}
	r.logger.Info("imported session cookies", "count", len(cookies))

	user, err := svc.Auth.CurrentUser(ctx)
	if err != nil {
		r.logger.Warn("imported cookies were not accepted", "error", err)
		return r.writePlain("Imported %d cookies, but the API rejected them: %v\n", len(cookies), err)
	}
	return r.writePlain("✓ Imported %d cookies, signed in as %s\n", len(cookies), user.DisplayName())
}
