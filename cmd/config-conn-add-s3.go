package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/config"
	"github.com/relloyd/xlpipe/constants"
	"github.com/spf13/cobra"
)

var configConnS3 = &actions.ConnectionConfig{}

var configConnAddS3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Add an AWS S3 bucket",
	Long: fmt.Sprintf(`Add an AWS S3 bucket to the config store %q.

Provide a URL or supply individual flags.
Trailing slashes are trimmed and cleaned up internally.
The URL takes precedence and should be of the form:

s3://<bucket name>/<prefix>`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConnectionAdd(cmd, configConnS3, constants.ConnectionTypeS3)
	},
}

func init() {
	configConnAddCmd.AddCommand(configConnAddS3Cmd)
	configConnAddS3Cmd.Flags().SortFlags = false
	switches.addFlag(configConnAddS3Cmd, &configConnS3.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddS3Cmd, &configConnS3.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &configConnS3.Dsn, "dsn", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &configConnS3.Bucket, "s3-bucket", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &configConnS3.Prefix, "s3-prefix", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &configConnS3.Region, "s3-region", "eu-west-1", false, "")
}
