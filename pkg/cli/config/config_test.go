package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/cli/config"
	"github.com/venquis/contractchat/pkg/orchestrator"
)

// parseFlags runs a throwaway command so that flag defaults and values land
// in the config struct
func parseFlags(t *testing.T, flags []cli.Flag, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "test",
		Flags: flags,
		Action: func(context.Context, *cli.Command) error {
			return nil
		},
	}
	gt.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...))).Required()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	path := writeConfig(t, `
[upload]
allowed_types = ["application/pdf", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"]
max_size = 5242880

[retry]
attempts = 5
delay = "500ms"
classified = false
`)

	cfg, err := config.LoadAppConfiguration(path)
	gt.NoError(t, err).Required()

	gt.Array(t, cfg.Upload.AllowedTypes).Length(2)
	gt.Value(t, cfg.Upload.MaxSize).Equal(int64(5 << 20))
	gt.Value(t, cfg.Retry.Attempts).Equal(5)
	gt.Value(t, time.Duration(cfg.Retry.Delay)).Equal(500 * time.Millisecond)

	policy := cfg.RetryPolicy()
	fixed, ok := policy.(orchestrator.FixedPolicy)
	gt.Bool(t, ok).True()
	gt.Value(t, fixed.Attempts()).Equal(5)
	gt.Value(t, fixed.Delay(1)).Equal(500 * time.Millisecond)

	upload := cfg.UploadPolicy()
	gt.Value(t, upload.MaxSize).Equal(int64(5 << 20))
	gt.Array(t, upload.AllowedTypes).Length(2)
}

func TestLoadAppConfiguration_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "none.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	t.Run("broken TOML", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(writeConfig(t, "[upload\nmax_size = 1"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(writeConfig(t, "[retry]\ndelay = \"soon\""))
		gt.Value(t, err).NotNil()
	})

	t.Run("too many attempts", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(writeConfig(t, "[retry]\nattempts = 50"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("not a media type", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(writeConfig(t, "[upload]\nallowed_types = [\"pdf\"]"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("negative size", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(writeConfig(t, "[upload]\nmax_size = -1"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestApp_Defaults(t *testing.T) {
	var app config.App
	parseFlags(t, app.Flags())

	cfg, err := app.Configure()
	gt.NoError(t, err).Required()

	policy := cfg.RetryPolicy()
	_, classified := policy.(*orchestrator.ClassifiedPolicy)
	gt.Bool(t, classified).True()
	gt.Value(t, policy.Attempts()).Equal(orchestrator.DefaultRetryAttempts)
	gt.Value(t, policy.Delay(1)).Equal(orchestrator.DefaultRetryDelay)

	upload := cfg.UploadPolicy()
	gt.Value(t, upload.MaxSize).Equal(int64(orchestrator.DefaultMaxUploadSize))
	gt.Array(t, upload.AllowedTypes).Length(1)
	gt.Value(t, upload.AllowedTypes[0]).Equal("application/pdf")
}

func TestApp_FromFlag(t *testing.T) {
	path := writeConfig(t, "[retry]\nattempts = 1\n")

	var app config.App
	parseFlags(t, app.Flags(), "--config", path)
	gt.Value(t, app.Path()).Equal(path)

	cfg, err := app.Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.RetryPolicy().Attempts()).Equal(1)
}
