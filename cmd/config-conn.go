package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/config"
	"github.com/spf13/cobra"
)

var connRemoveCfg = actions.ConnectionConfig{}

var configConnCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Configure connection details",
	Long: fmt.Sprintf(`Configure the warehouse and S3 connections named by project files where:

- Connections are stored in file %q
- XP_<CONNECTION NAME>_DSN overrides a saved connection`, config.Connections.FullPath),
}

var configConnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a connection",
	Long:  `Add a logical connection (warehouse or S3 bucket) for use by project files.`,
}

var configConnListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all connections with passwords redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return actions.RunConnectionList(&actions.ConnectionConfig{ConfigFile: config.Connections, Output: cmd.OutOrStdout()})
	},
}

var configConnRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		var err error
		if connRemoveCfg.ConfigFile, err = getConnectionGetterSetter(); err != nil {
			return err
		}
		connRemoveCfg.Output = cmd.OutOrStdout()
		return actions.RunConnectionRemove(&connRemoveCfg)
	},
}

func init() {
	configCmd.AddCommand(configConnCmd)
	configConnCmd.AddCommand(configConnAddCmd, configConnListCmd, configConnRemoveCmd)
	switches.addFlag(configConnRemoveCmd, &connRemoveCfg.LogicalName, "connection-name", "", true, "")
}

// runConnectionAdd saves cfg as a connection of type t.
func runConnectionAdd(cmd *cobra.Command, cfg *actions.ConnectionConfig, t string) error {
	cmd.SilenceUsage = true
	var err error
	cfg.Type = t
	if cfg.ConfigFile, err = getConnectionGetterSetter(); err != nil {
		return err
	}
	cfg.Output = cmd.OutOrStdout()
	return actions.RunConnectionAdd(cfg)
}
