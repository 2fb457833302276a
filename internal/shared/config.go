package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvAPIURL overrides [APIConfig.BaseURL] when set.
const EnvAPIURL = "STUDYFLOW_API_URL"

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Feed     FeedConfig     `toml:"feed"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains settings for the remote StudyFlow API.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	WebURL            string  `toml:"web_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RateLimit         float64 `toml:"rate_limit"`
	OpenLoginOnExpiry bool    `toml:"open_login_on_expiry"`
}

// Timeout returns the configured HTTP timeout; zero means none.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoginURL is the web app's login view, opened when a session can't be recovered.
func (c APIConfig) LoginURL() string {
	return c.WebURL + "/login"
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local mock API server.
type ServerConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	Prefix            string   `toml:"prefix"`
	JWTSecret         string   `toml:"jwt_secret"`
	AccessTTLSeconds  int      `toml:"access_ttl_seconds"`
	RefreshTTLSeconds int      `toml:"refresh_ttl_seconds"`
	AllowedOrigins    []string `toml:"allowed_origins"`
}

// Addr joins host and port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FeedConfig contains feed export settings.
type FeedConfig struct {
	ExportRate float64 `toml:"export_rate"`
	MaxPages   int     `toml:"max_pages"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIFile string `toml:"tui_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides config values from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit must be >= 0", ErrInvalidConfig)
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: api.timeout_seconds must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
