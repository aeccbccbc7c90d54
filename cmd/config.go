package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure connections and default flag values",
	Long: fmt.Sprintf(`Manage the files under $%v (default ~/.xlpipe):

- %v holds the warehouse and S3 connections named by project files
- %v holds default flag values
`, config.HomeDirEnvVar, config.ConnectionsConfigFileFullName, config.MainFileFullName),
}

func init() {
	rootCmd.AddCommand(configCmd)
}
