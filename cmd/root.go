package cmd

import (
	"fmt"
	"os"

	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version   = "0.1.0"
	buildDate = "2021-03-01T00:00+0000"
)

// globals are the persistent flags shared by every command.
var globals struct {
	stackDumpOnPanic bool
	logLevel         string
	logFormat        string
	projectFile      string
	statsSeconds     int
}

var rootCmd = &cobra.Command{
	Use: "xp",
	Long: `
xlpipe turns spreadsheet exports into tested warehouse models.
It converts each workbook to CSV, stages and copies the files into raw tables,
then builds the staging, marts and analyses layers and runs their tests.
Use "xp run" for the whole pipeline or the other commands for each part of it.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information for xlpipe",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "xlpipe\n  Version:\t%v\n  Build date:\t%v\n", version, buildDate)
		return nil
	},
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(versionCmd)
	f := rootCmd.PersistentFlags()
	f.SortFlags = false
	f.BoolVar(&globals.stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = f.MarkHidden("print-stack")
	switches.addPersistentFlag(rootCmd, &globals.logLevel, "log-level", "warn", "")
	switches.addPersistentFlag(rootCmd, &globals.logFormat, "log-format", "text", "")
	switches.addPersistentFlag(rootCmd, &globals.projectFile, "project", "", "")
	switches.addPersistentFlag(rootCmd, &globals.statsSeconds, "stats", "0", "")
	_ = rootCmd.MarkPersistentFlagFilename("project", "yaml", "yml")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if err := execute12FactorMode(twelveFactorActions); err != nil {
			os.Exit(1) // execute12FactorMode logs the error.
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1) // Execute() prints the error.
	}
}

// newLogger builds the logger described by the global flags.
func newLogger() (logger.Logger, error) {
	log, err := logger.NewLogger(c.ServiceName, globals.logLevel, globals.stackDumpOnPanic)
	if err != nil {
		return nil, err
	}
	switch globals.logFormat {
	case "", "text":
	case "json":
		log.SetFormatter(true)
	default:
		return nil, fmt.Errorf("unsupported log format %q: use text or json", globals.logFormat)
	}
	return log, nil
}
