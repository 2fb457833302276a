package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/repositories"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, cookie jar and API services are opened lazily by [Runner.connect]
// so commands like `setup config` work before anything exists on disk.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error

	db       *sql.DB
	ownsDB   bool
	sessions *repositories.SessionRepository
	exports  *repositories.ExportRepository
	jar      *repositories.PersistentJar
	svc      *services.Services
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Logger      *log.Logger
	Output      io.Writer
	DB          *sql.DB
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		db:          opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, feedCommand, postsCommand, commentsCommand,
		communitiesCommand, apiCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config, when it exists, and applies
// environment overrides and the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	r.config.ApplyEnv()
	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger for the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect opens the session database and builds the API services on first use.
func (r *Runner) connect() (*services.Services, error) {
	if r.svc != nil {
		return r.svc, nil
	}

	if r.db == nil {
		db, err := shared.OpenMigrated(r.config.Database, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.ownsDB = true
	}

	baseURL := r.config.API.BaseURL
	r.sessions = repositories.NewSessionRepository(r.db)
	r.exports = repositories.NewExportRepository(r.db)

	jar, err := repositories.NewPersistentJar(r.sessions, baseURL, r.logger)
	if err != nil {
		return nil, err
	}
	if err := jar.Load(); err != nil {
		return nil, fmt.Errorf("failed to load session cookies: %w", err)
	}
	r.jar = jar

	client := services.NewClient(services.ClientOpts{
		BaseURL:          baseURL,
		Jar:              jar,
		Timeout:          r.config.API.Timeout(),
		RateLimit:        r.config.API.RateLimit,
		OnSessionExpired: r.sessionExpired,
		Logger:           r.logger,
	})
	r.svc = services.New(client, r.sessions.Flag(baseURL), r.logger)
	return r.svc, nil
}

// sessionExpired runs once per failed refresh cluster.
func (r *Runner) sessionExpired(err error) {
	r.logger.Warn("session expired", "error", err)
	r.writePlain("Session expired. Run `sf auth login` to sign in again.\n")

	if !r.config.API.OpenLoginOnExpiry {
		return
	}
	loginURL := r.config.API.LoginURL()
	if err := r.openBrowser(loginURL); err != nil {
		r.logger.Warn("failed to open login page", "url", loginURL, "error", err)
	}
}

// Close releases the database opened by [Runner.connect].
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.svc = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
