package cli

import (
	"fmt"

	"github.com/axellelanca/linkstats/cmd"
	"github.com/axellelanca/linkstats/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd represents the 'migrate' command.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (sqlite, postgres or libsql)
and executes GORM automatic migrations to create the 'links' and 'visits' tables.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := cmd.Config()
		if err != nil {
			return err
		}

		db, err := database.Open(*cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}

		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
