package cmd

import (
	"context"
	"os"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/config"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/pipeline"
	"github.com/spf13/cobra"
)

// pipelineFlags are the values collected for one pipeline command.
type pipelineFlags struct {
	tables   string
	selector string
	keepCsv  bool
	dryRun   bool
	output   string
	dialect  string
}

var (
	runArgs     pipelineFlags
	extractArgs pipelineFlags
	loadArgs    pipelineFlags
	buildArgs   pipelineFlags
	testArgs    pipelineFlags
	compileArgs pipelineFlags
	createArgs  pipelineFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert, load and build everything",
	Long: `Run the whole pipeline against the warehouse connection named in the project:

- Create the schemas, the stage and the raw tables if they are missing
- Per source table: convert the workbook to CSV, stage it, copy it into the raw table, delete the CSV
  (workbook columns that are not listed in the project are dropped with a warning)
- Build the staging, marts and analyses models in dependency order and run their tests

The run stops at the first failure. Re-running against unchanged spreadsheets gives the same result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPipelineCommand(c.ActionFuncsCommandRun, &runArgs)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Convert spreadsheets to CSV files in the work directory",
	Long: `Convert the first sheet of each source workbook to <work-dir>/<table>.csv,
keeping only the columns listed in the project. Workbook columns that are not listed
are dropped and reported in a warning. No warehouse connection is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runExtract()
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Stage and copy CSV files into the raw tables",
	Long: `Stage the CSV files written by "xp extract" and copy each one into its raw table,
replacing the table contents. CSV files are deleted afterwards unless --keep-csv is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPipelineCommand(c.ActionFuncsCommandLoad, &loadArgs)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build models and run their tests",
	Long: `Materialize the selected models in dependency order and run the tests declared
in their front matter. Select models by layer (staging, marts, analyses) or by name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPipelineCommand(c.ActionFuncsCommandBuild, &buildArgs)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run model tests without rebuilding",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPipelineCommand(c.ActionFuncsCommandTest, &testArgs)
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the SQL of the selected models",
	Long: `Render the selected models and their tests for the warehouse dialect and print them as YAML or JSON.
Nothing is executed. Use --dialect to compile without a saved warehouse connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCompile()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SortFlags = false
	switches.addFlag(runCmd, &runArgs.tables, "tables", "", false, "")
	switches.addFlag(runCmd, &runArgs.keepCsv, "keep-csv", "", false, "")
	switches.addFlag(runCmd, &runArgs.dryRun, "dry-run", "", false, "")
	switches.addFlag(runCmd, &runArgs.output, "output", "", false, "")
	switches.addFlag(runCmd, &runArgs.dialect, "dialect", "", false, " (used by dry runs)")

	rootCmd.AddCommand(extractCmd)
	switches.addFlag(extractCmd, &extractArgs.tables, "tables", "", false, "")

	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().SortFlags = false
	switches.addFlag(loadCmd, &loadArgs.tables, "tables", "", false, "")
	switches.addFlag(loadCmd, &loadArgs.keepCsv, "keep-csv", "", false, "")
	switches.addFlag(loadCmd, &loadArgs.output, "output", "", false, "")

	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().SortFlags = false
	switches.addFlag(buildCmd, &buildArgs.selector, "select", "", false, "")
	switches.addFlag(buildCmd, &buildArgs.output, "output", "", false, "")

	rootCmd.AddCommand(testCmd)
	testCmd.Flags().SortFlags = false
	switches.addFlag(testCmd, &testArgs.selector, "select", "", false, "")
	switches.addFlag(testCmd, &testArgs.output, "output", "", false, "")

	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().SortFlags = false
	switches.addFlag(compileCmd, &compileArgs.selector, "select", "", false, "")
	switches.addFlag(compileCmd, &compileArgs.output, "output", actions.OutputFormatYaml, false, "")
	switches.addFlag(compileCmd, &compileArgs.dialect, "dialect", "", false, "")
}

// newPipelineArgs loads the project and builds the generic action config from f.
func newPipelineArgs(f *pipelineFlags) (*actions.PipelineArgs, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	p, err := config.LoadProject(globals.projectFile)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded project ", p.Name, " from ", projectSource(p))
	return &actions.PipelineArgs{
		Ctx:                       context.Background(),
		Log:                       log,
		Project:                   p,
		Connections:               getConnectionHandler(),
		Tables:                    csvFlag(f.tables),
		Selector:                  f.selector,
		KeepCsv:                   f.keepCsv,
		DryRun:                    f.dryRun,
		OutputFormat:              f.output,
		Output:                    os.Stdout,
		StatsDumpFrequencySeconds: globals.statsSeconds,
		CleanupHandler:            pipeline.CleanupHandlerDefault,
		Report:                    &actions.Report{},
	}, nil
}

func projectSource(p *config.Project) string {
	if p.FileName == "" {
		return "the built-in defaults"
	}
	return p.FileName
}

// warehouseType returns the dialect flag, or the type of the project's warehouse connection.
func warehouseType(args *actions.PipelineArgs, f *pipelineFlags) (string, error) {
	if f.dialect != "" {
		return f.dialect, nil
	}
	return args.Connections.GetConnectionType(args.Project.Warehouse.Connection)
}

// runPipelineCommand launches the action registered for command and prints the run summary.
func runPipelineCommand(command string, f *pipelineFlags) error {
	args, err := newPipelineArgs(f)
	if err != nil {
		return err
	}
	t, err := warehouseType(args, f)
	if err != nil {
		return err
	}
	err = actions.ActionLauncher(args, command, t)
	if !f.dryRun {
		printReport(os.Stdout, args.Log, args.Report, f.output)
	}
	return err
}

func runExtract() error {
	args, err := newPipelineArgs(&extractArgs)
	if err != nil {
		return err
	}
	err = actions.RunExtract(args)
	printReport(os.Stdout, args.Log, args.Report, extractArgs.output)
	return err
}

func runCompile() error {
	args, err := newPipelineArgs(&compileArgs)
	if err != nil {
		return err
	}
	args.Offline = true
	t, err := warehouseType(args, &compileArgs)
	if err != nil {
		return err
	}
	return actions.ActionLauncher(args, c.ActionFuncsCommandCompile, t)
}

func printReport(w *os.File, log logger.Logger, r *actions.Report, format string) {
	if r == nil || len(r.Tasks) == 0 {
		return
	}
	if err := writeReport(w, r, format, useColor(w)); err != nil {
		log.Error("unable to print the run summary: ", err)
	}
}
