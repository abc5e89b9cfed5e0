package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/orchestrator"
)

// AppConfig represents the optional TOML application configuration
type AppConfig struct {
	Upload UploadConfig `toml:"upload"`
	Retry  RetryConfig  `toml:"retry"`
}

// UploadConfig controls which files the chat client accepts
type UploadConfig struct {
	AllowedTypes []string `toml:"allowed_types"`
	MaxSize      int64    `toml:"max_size"`
}

// Validate checks if the UploadConfig is valid
func (u *UploadConfig) Validate() error {
	for i, t := range u.AllowedTypes {
		if !strings.Contains(t, "/") {
			return goerr.Wrap(ErrInvalidConfig, "allowed type must be a media type",
				goerr.V("type", t), goerr.V("index", i))
		}
	}
	if u.MaxSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "max_size must not be negative", goerr.V("max_size", u.MaxSize))
	}
	return nil
}

// RetryConfig controls how the chat client retries analysis requests
type RetryConfig struct {
	Attempts   int      `toml:"attempts"`
	Delay      Duration `toml:"delay"`
	Classified *bool    `toml:"classified"`
}

// Validate checks if the RetryConfig is valid
func (r *RetryConfig) Validate() error {
	if r.Attempts < 0 || r.Attempts > 10 {
		return goerr.Wrap(ErrInvalidConfig, "retry attempts must be between 0 and 10", goerr.V("attempts", r.Attempts))
	}
	if r.Delay < 0 {
		return goerr.Wrap(ErrInvalidConfig, "retry delay must not be negative", goerr.V("delay", r.Delay.String()))
	}
	return nil
}

// Duration is a time.Duration written as a string such as "2s" in TOML
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return goerr.Wrap(err, "invalid duration", goerr.V("value", string(text)))
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Upload.Validate(); err != nil {
		return goerr.Wrap(err, "invalid upload config")
	}
	if err := a.Retry.Validate(); err != nil {
		return goerr.Wrap(err, "invalid retry config")
	}
	return nil
}

// UploadPolicy converts the upload section, filling unset values with defaults
func (a *AppConfig) UploadPolicy() orchestrator.UploadPolicy {
	p := orchestrator.DefaultUploadPolicy()
	if len(a.Upload.AllowedTypes) > 0 {
		p.AllowedTypes = a.Upload.AllowedTypes
	}
	if a.Upload.MaxSize > 0 {
		p.MaxSize = a.Upload.MaxSize
	}
	return p
}

// RetryPolicy converts the retry section. Classified retries are the default.
func (a *AppConfig) RetryPolicy() orchestrator.RetryPolicy {
	base := orchestrator.DefaultFixedPolicy()
	if a.Retry.Attempts > 0 {
		base.MaxAttempts = a.Retry.Attempts
	}
	if a.Retry.Delay > 0 {
		base.Interval = time.Duration(a.Retry.Delay)
	}

	if a.Retry.Classified != nil && !*a.Retry.Classified {
		return base
	}
	return orchestrator.NewClassifiedPolicy(base)
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the CLI flag pointing at the TOML configuration file
type App struct {
	path string
}

func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("CONTRACTCHAT_CONFIG"),
			Destination: &a.path,
		},
	}
}

func (a App) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", a.path))
}

// Path returns the configured file path, "" when none was given
func (a *App) Path() string {
	return a.path
}

// Configure loads the configuration file, or returns the defaults when no
// file was given
func (a *App) Configure() (*AppConfig, error) {
	if a.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(a.path)
}
