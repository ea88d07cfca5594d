package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/J-Stott/RegularReviewsBackEnd/migrations"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/logger"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply the embedded schema migrations to the database named by the
POSTGRES_* and REVIEW_DB_NAME variables. The service also migrates on start;
this command lets the schema be upgraded ahead of a rollout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := logger.NewWithWriter("reviewctl", cfg.LogLevel, cmd.ErrOrStderr())

			pool, err := database.NewPostgresPool(cmd.Context(), cfg.Postgres(), log)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()

			if err := database.Migrate(cmd.Context(), pool, migrations.FS, log); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}
