package cmd

import (
	c "github.com/relloyd/xlpipe/constants"
	"github.com/spf13/cobra"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Create the stage named in the project",
	Long: `Create the stage named in the project file:

- snowflake: an internal stage
- s3: an external stage over the bucket and prefix of the project's S3 connection
- local: the stage directory (SQLite warehouses only)
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPipelineCommand(c.ActionFuncsCommandCreateStage, &createArgs)
	},
}

func init() {
	createCmd.AddCommand(stageCmd)
}
