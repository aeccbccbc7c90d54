package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/config"
	"github.com/relloyd/xlpipe/constants"
	"github.com/spf13/cobra"
)

var configConnSnowflakeCfg = &actions.ConnectionConfig{}

var configConnAddSnowflakeCmd = &cobra.Command{
	Use:   "snowflake",
	Short: "Add a Snowflake connection",
	Long: fmt.Sprintf(`Add a Snowflake connection to the config store %q
by providing a DSN of the form:

snowflake://<user>:<password>@<account>/<database-name>?schema=<schema>&warehouse=<warehouse>&role=<role>

or by supplying the individual flags instead.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConnectionAdd(cmd, configConnSnowflakeCfg, constants.ConnectionTypeSnowflake)
	},
}

func init() {
	configConnAddCmd.AddCommand(configConnAddSnowflakeCmd)
	configConnAddSnowflakeCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Dsn, "dsn", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.User, "user", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.Password, "password", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.Schema, "schema", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.DBName, "snowflake-database-name", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.Account, "snowflake-account", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.RoleName, "snowflake-role", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflakeCfg.Snowflake.Warehouse, "snowflake-warehouse", "", false, "")
}
