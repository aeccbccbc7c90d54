package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/config"
	"github.com/spf13/cobra"
)

// Defaults are flag values saved in config.Main and applied by switches.addFlag.
var (
	defaultAddCfg    = actions.DefaultConfig{}
	defaultRemoveCfg = actions.DefaultConfig{}
)

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Configure default flag values",
	Long: fmt.Sprintf(`Save values that commands use when a flag is not supplied, where:

- Keys are flag long-names, e.g. "project" or "log-level"
- Defaults are stored in config file %q`, config.Main.FullPath),
}

var defaultAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or set a default flag value",
	Long:  fmt.Sprintf("Add a default flag value to config file %q", config.Main.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultAddCfg.ConfigFile = config.Main
		defaultAddCfg.Output = cmd.OutOrStdout()
		return actions.RunDefaultAdd(&defaultAddCfg)
	},
}

var defaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all default flag values",
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunDefaultList(&actions.DefaultConfig{ConfigFile: config.Main, Output: cmd.OutOrStdout()})
	},
}

var defaultRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm"},
	Short:   "Remove a default flag value",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultRemoveCfg.ConfigFile = config.Main
		defaultRemoveCfg.Output = cmd.OutOrStdout()
		return actions.RunDefaultRemove(&defaultRemoveCfg)
	},
}

func init() {
	configCmd.AddCommand(defaultCmd)
	defaultCmd.AddCommand(defaultAddCmd, defaultListCmd, defaultRemoveCmd)

	f := defaultAddCmd.Flags()
	f.SortFlags = false
	f.StringVarP(&defaultAddCfg.Key, "key", "k", "", "* The flag name to set a default for")
	f.StringVarP(&defaultAddCfg.Value, "value", "v", "", "* The default value")
	f.BoolVarP(&defaultAddCfg.Force, "force", "f", false, "Overwrite an existing value")
	_ = defaultAddCmd.MarkFlagRequired("key")
	_ = defaultAddCmd.MarkFlagRequired("value")
	defaultAddCmd.SilenceUsage = true

	defaultRemoveCmd.Flags().StringVarP(&defaultRemoveCfg.Key, "key", "k", "", "* The flag name to remove")
	_ = defaultRemoveCmd.MarkFlagRequired("key")
	defaultRemoveCmd.SilenceUsage = true
}
