package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/cli/config"
	httpctrl "github.com/venquis/contractchat/pkg/controller/http"
	"github.com/venquis/contractchat/pkg/usecase"
	"github.com/venquis/contractchat/pkg/utils/async"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var baseURL string
	var appCfg config.App
	var repoCfg config.Repository
	var storageCfg config.Storage
	var workflowCfg config.Workflow
	var memoryCfg config.Memory
	var authCfg config.Auth

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CONTRACTCHAT_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public base URL of this server, used for locally stored file URLs",
			Value:       "http://localhost:8080",
			Sources:     cli.EnvVars("CONTRACTCHAT_BASE_URL"),
			Destination: &baseURL,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, workflowCfg.Flags()...)
	flags = append(flags, memoryCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			appConfig, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			fileStorage, closeStorage, err := storageCfg.Configure(ctx, strings.TrimRight(baseURL, "/"))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize file storage")
			}
			defer closeStorage()

			memorySvc, closeMemory, err := memoryCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize memory service")
			}
			defer closeMemory()

			workflowClient, err := workflowCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize workflow client")
			}

			ucOpts := []usecase.Option{
				usecase.WithIdentity(authCfg.Configure()),
			}
			if workflowClient != nil {
				ucOpts = append(ucOpts, usecase.WithWorkflow(workflowClient))
			}
			if memorySvc != nil {
				ucOpts = append(ucOpts, usecase.WithMemoryService(memorySvc))
			}
			if fileStorage != nil {
				ucOpts = append(ucOpts, usecase.WithFileStorage(fileStorage))
			}
			uc := usecase.New(repo, ucOpts...)

			httpOpts := []httpctrl.Options{
				httpctrl.WithMaxUploadSize(appConfig.UploadPolicy().MaxSize + 1<<20),
			}
			if dir := storageCfg.LocalDir(); dir != "" {
				httpOpts = append(httpOpts, httpctrl.WithLocalFiles(dir))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server",
					"addr", addr,
					"repository", repoCfg,
					"storage", storageCfg,
					"workflow", workflowCfg,
					"memory", memoryCfg,
					"auth", authCfg,
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down")
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)
			}

			// Create shutdown context with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			// Attempt graceful shutdown
			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Let background memory writes finish before closing their clients
			async.Wait()

			logger.Info("Server shutdown completed")
			return nil
		},
	}
}
