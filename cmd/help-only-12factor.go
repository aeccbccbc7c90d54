package cmd

import (
	"fmt"

	"github.com/relloyd/xlpipe/constants"
	"github.com/spf13/cobra"
)

var twelveFactorCmd = &cobra.Command{
	Use:   "12f",
	Short: `View help notes for running in Twelve-Factor mode`,
	Long: fmt.Sprintf(`
xlpipe can be controlled by environment variables, which suits scheduled
containers where passing flags is awkward.

To enable Twelve-Factor mode, set environment variable %[1]s_12FACTOR_MODE=1.
To supply flags documented by the regular command-line usage, set an
equivalent environment variable using the following convention:

%[1]s_<flag long-name in upper case with dashes as underscores>

Connections are never read from the config store in this mode. Supply each
connection named by the project as %[1]s_<CONNECTION NAME>_DSN instead.

For example, this will run the whole pipeline into a local SQLite file:

export %[1]s_12FACTOR_MODE=1
export %[1]s_LOG_LEVEL=info
export %[1]s_COMMAND=run
export %[1]s_PROJECT=./xlpipe.yaml
export %[1]s_LOCAL_DSN=sqlite://./warehouse.db
export %[1]s_KEEP_CSV=true

Then execute the CLI tool without any arguments or flags to kick off the pipeline.
%[1]s_COMMAND accepts run, extract, load, build, test, compile, create-stage and create-raw-tables.
`, constants.EnvVarPrefix),
}

func init() {
	rootCmd.AddCommand(twelveFactorCmd)
}
