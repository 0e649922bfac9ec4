package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// migrate
// ─────────────────────────────────────────────────────────────────────────────

// schemaMigrator applies the embedded snapshot schema to a database URL.
type schemaMigrator struct {
	Up     func(dbURL string) error
	Down   func(dbURL string, steps int) error
	Status func(dbURL string) (uint, bool, error)
}

var migrations = schemaMigrator{
	Up:     postgres.RunMigrations,
	Down:   postgres.RollbackMigration,
	Status: postgres.MigrationStatus,
}

// schemaStatus is what `migrate status` prints.
type schemaStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s schemaStatus) String() string {
	if s.Version == 0 {
		return "schema: not initialized\n"
	}
	if s.Dirty {
		return fmt.Sprintf("schema: version %d (dirty, fix manually before migrating)\n", s.Version)
	}
	return fmt.Sprintf("schema: version %d\n", s.Version)
}

func (s schemaStatus) TableHeaders() []string { return []string{"VERSION", "DIRTY"} }
func (s schemaStatus) TableRows() [][]string {
	return [][]string{{fmt.Sprint(s.Version), fmt.Sprint(s.Dirty)}}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL snapshot schema",
		Long: "Apply, roll back or inspect the analysis_snapshots schema of the database\n" +
			"configured under postgres.*.",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll the schema back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.New(errors.ErrCodeValidation, "--steps must be positive")
			}
			dbURL, err := migrationURL(cmd)
			if err != nil {
				return err
			}
			if err := migrations.Down(dbURL, steps); err != nil {
				return errors.Storage(err, "schema rollback failed")
			}
			return PrintResult(cmd, fmt.Sprintf("Rolled back %d migration(s).", steps))
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dbURL, err := migrationURL(cmd)
				if err != nil {
					return err
				}
				if err := migrations.Up(dbURL); err != nil {
					return errors.Storage(err, "schema migration failed")
				}
				return PrintResult(cmd, "Schema is up to date.")
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dbURL, err := migrationURL(cmd)
				if err != nil {
					return err
				}
				version, dirty, err := migrations.Status(dbURL)
				if err != nil {
					return errors.Storage(err, "failed to read schema version")
				}
				return PrintResult(cmd, schemaStatus{Version: version, Dirty: dirty})
			},
		},
	)
	return cmd
}

// migrationURL resolves the database the migration commands act on.  They
// always run locally.
func migrationURL(cmd *cobra.Command) (string, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return "", err
	}
	if cliCtx.Client != nil {
		return "", errors.New(errors.ErrCodeValidation, "migrate does not support --server")
	}
	pg := cliCtx.Config.Postgres
	if pg.Host == "" || pg.DBName == "" {
		return "", errors.New(errors.ErrCodeValidation, "postgres.host and postgres.db_name are required")
	}
	return postgres.ConnString(pg), nil
}

//Personal.AI order the ending
