package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/cli/config"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

func cmdValidate() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var storageCfg config.Storage
	var workflowCfg config.Workflow
	var memoryCfg config.Memory

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, workflowCfg.Flags()...)
	flags = append(flags, memoryCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration file and backend options without connecting",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			// Step 1: Load and validate the configuration file
			appConfig, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			upload := appConfig.UploadPolicy()
			retry := appConfig.RetryPolicy()
			logger.Info("Configuration validation passed",
				"config", appCfg,
				"allowed_types", upload.AllowedTypes,
				"max_upload_size", upload.MaxSize,
				"retry_attempts", retry.Attempts(),
				"retry_delay", retry.Delay(1),
			)

			// Step 2: Check backend options
			checks := []struct {
				name     string
				validate func() error
			}{
				{"repository", repoCfg.Validate},
				{"storage", storageCfg.Validate},
				{"workflow", workflowCfg.Validate},
				{"memory", memoryCfg.Validate},
			}
			for _, check := range checks {
				if err := check.validate(); err != nil {
					return goerr.Wrap(err, "backend validation failed", goerr.V("component", check.name))
				}
			}

			logger.Info("Backend options validated",
				"repository", repoCfg,
				"storage", storageCfg,
				"workflow", workflowCfg,
				"memory", memoryCfg,
			)
			return nil
		},
	}
}
