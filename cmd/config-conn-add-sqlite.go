package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/config"
	"github.com/relloyd/xlpipe/constants"
	"github.com/spf13/cobra"
)

var configConnSqliteCfg = &actions.ConnectionConfig{}

var configConnAddSqliteCmd = &cobra.Command{
	Use:   "sqlite",
	Short: "Add a SQLite warehouse",
	Long: fmt.Sprintf(`Add a SQLite database file as a warehouse connection in config store %q.

Supply the file path, or a DSN of the form sqlite://<path>.
The file is created the first time a pipeline connects to it.
Raw files are staged in the project's local stage directory.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConnectionAdd(cmd, configConnSqliteCfg, constants.ConnectionTypeSqlite)
	},
}

func init() {
	configConnAddCmd.AddCommand(configConnAddSqliteCmd)
	configConnAddSqliteCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddSqliteCmd, &configConnSqliteCfg.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddSqliteCmd, &configConnSqliteCfg.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddSqliteCmd, &configConnSqliteCfg.Dsn, "dsn", "", false, "")
	switches.addFlag(configConnAddSqliteCmd, &configConnSqliteCfg.SqlitePath, "sqlite-path", "", false, "")
}
