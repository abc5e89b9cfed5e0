package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/cli/config"
	"github.com/venquis/contractchat/pkg/repository/firestore"
	"github.com/venquis/contractchat/pkg/repository/postgres"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the PostgreSQL schema or the Firestore indexes",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := repoCfg.Validate(); err != nil {
				return err
			}

			logging.Default().Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendPostgres:
				return migratePostgres(ctx, c, &repoCfg, dryRun)
			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dryRun)
			default:
				logging.Default().Info("Nothing to migrate for backend", "backend", repoCfg.Backend())
				return nil
			}
		},
	}
}

func migratePostgres(ctx context.Context, c *cli.Command, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	if dryRun {
		logger.Info("Dry run mode - printing schema")
		_, err := fmt.Fprintln(c.Root().Writer, postgres.Schema())
		return err
	}

	repo, err := repoCfg.Postgres(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close postgres pool", "error", err.Error())
		}
	}()

	logger.Info("Applying schema")
	if err := repo.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply schema")
	}
	logger.Info("Schema applied successfully")
	return nil
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	// Get index configuration
	indexConfig := getIndexConfig(repoCfg.CollectionPrefix())

	// Create fireconf client
	client, err := fireconf.NewClient(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID())
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if !dryRun {
		logger.Info("Applying migrations")
		if err := client.Migrate(ctx, indexConfig); err != nil {
			return goerr.Wrap(err, "failed to apply migrations")
		}
		logger.Info("Migrations applied successfully")
		return nil
	}

	logger.Info("Dry run mode - previewing changes")
	plan, err := client.GetMigrationPlan(ctx, indexConfig)
	if err != nil {
		return goerr.Wrap(err, "failed to create migration plan")
	}

	if len(plan.Steps) == 0 {
		logger.Info("No changes required")
		return nil
	}

	for _, step := range plan.Steps {
		logger.Info("Migration step",
			"collection", step.Collection,
			"operation", step.Operation,
			"description", step.Description,
			"destructive", step.Destructive)
	}
	return nil
}

// getIndexConfig returns the Firestore composite indexes used by list queries
func getIndexConfig(prefix string) *fireconf.Config {
	conversations, contracts := firestore.CollectionNames(prefix)

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: conversations,
				Indexes: []fireconf.Index{
					// ListByUser: user_id ASC, updated_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "updated_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: contracts,
				Indexes: []fireconf.Index{
					// ListByConversation: conversation_id ASC, created_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "conversation_id", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
