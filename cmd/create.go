package cmd

import (
	c "github.com/relloyd/xlpipe/constants"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create warehouse objects used by the pipeline",
	Long: `Create the objects that "xp run" would otherwise create on demand:

- The schemas and the stage that CSV files are uploaded to
- The raw tables, one per source table, with a text column per listed spreadsheet column
`,
}

var createRawTablesCmd = &cobra.Command{
	Use:   "raw-tables",
	Short: "Create the raw schema and its tables",
	Long: `Create the raw schema and one table per source in the project.
Existing tables are left in place. Use --dry-run to print the tasks only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPipelineCommand(c.ActionFuncsCommandCreateRawTables, &createArgs)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.AddCommand(createRawTablesCmd)
	switches.addFlag(createRawTablesCmd, &createArgs.dryRun, "dry-run", "", false, "")
}
