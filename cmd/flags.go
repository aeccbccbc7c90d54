package cmd

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/relloyd/xlpipe/config"
	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/project"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	// Global.
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug\" where only step stats are \n" +
			"output at using \"warn\""},
	"log-format": cliFlag{name: "log-format",
		desc: "Log format: \"text | json\""},
	"project": cliFlag{name: "project", shortHand: "p",
		desc: "The project file to load. Defaults to ./" + project.DefaultConfigFileName + " if it exists, \n" +
			"else the built-in project"},
	"stats": cliFlag{name: "stats", shortHand: "L",
		desc: "Number of seconds between dumping step statistics (use 0 to disable)"},
	// Pipeline.
	"tables": cliFlag{name: "tables", shortHand: "t",
		desc: "The <CSV of source tables> to extract and load. Leave blank for all tables in the project"},
	"select": cliFlag{name: "select", shortHand: "s",
		desc: "The <CSV of layers or model names> to build, test or compile. Leave blank for all models"},
	"keep-csv": cliFlag{name: "keep-csv", shortHand: "k",
		desc: "Keep the CSV files in the work directory after they are loaded"},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the tasks and compiled models without executing them"},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"yaml\" or \"json\" to print definitions and run summaries in that format"},
	"dialect": cliFlag{name: "dialect", shortHand: "D",
		desc: "Compile for warehouse type \"snowflake | sqlite\" without looking up the connection"},
	// Connections.
	"connection-name": cliFlag{name: "connection-name", shortHand: "c",
		desc: "Connection name referred to by the project file"},
	"force-connection": cliFlag{name: "force", shortHand: "f",
		desc: "Allow overwrite of existing connections"},
	"dsn": cliFlag{name: "dsn", shortHand: "d",
		desc: "Connect string to parse (takes priority over individual flags)"},
	"user": cliFlag{name: "user", shortHand: "u",
		desc: "Username to connect"},
	"password": cliFlag{name: "password", shortHand: "P",
		desc: "Password for the user"},
	"schema": cliFlag{name: "schema", shortHand: "s",
		desc: "Schema name"},
	"snowflake-database-name": cliFlag{name: "database-name", shortHand: "D",
		desc: "Database name"},
	"snowflake-account": cliFlag{name: "account", shortHand: "a",
		desc: "Snowflake account"},
	"snowflake-role": cliFlag{name: "role", shortHand: "r",
		desc: "Snowflake role (omit to use default)"},
	"snowflake-warehouse": cliFlag{name: "warehouse", shortHand: "w",
		desc: "Snowflake compute warehouse name (omit to use default)"},
	"sqlite-path": cliFlag{name: "path", shortHand: "F",
		desc: "Path to the SQLite database file, created on first use"},
	"s3-bucket": cliFlag{name: "s3-bucket", shortHand: "b",
		desc: "AWS S3 bucket name in which to stage CSV files (set AWS environment variables for access)"},
	"s3-prefix": cliFlag{name: "s3-prefix", shortHand: "P",
		desc: "AWS S3 bucket prefix"},
	"s3-region": cliFlag{name: "s3-region", shortHand: "R",
		desc: "AWS S3 bucket region"},
}

// addFlag adds a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of the environment variable for
// the supplied name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the default value is fetched from config if it exists else the supplied
// defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	f.addFlagToSet(c, c.Flags(), targetVar, name, defaultValue, required, desc2)
}

// addPersistentFlag is addFlag for flags inherited by every subcommand of c.
func (f *cliFlags) addPersistentFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, desc2 string) {
	f.addFlagToSet(c, c.PersistentFlags(), targetVar, name, defaultValue, false, desc2)
}

func (f *cliFlags) addFlagToSet(c *cobra.Command, fs *pflag.FlagSet, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, config.Main.Get) // defaults come from config or the supplied defaultValue
	desc := sw.desc + desc2
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			fs.StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
		}
	case *bool:
		b := sw.val != "" && strings.ToLower(sw.val) != "false"
		if twelveFactorMode {
			*p = b
		} else {
			fs.BoolVarP(p, sw.name, sw.shortHand, b, desc)
		}
	case *int:
		n := 0
		if sw.val != "" {
			var err error
			if n, err = strconv.Atoi(sw.val); err != nil {
				fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
				os.Exit(1)
			}
		}
		if twelveFactorMode {
			*p = n
		} else {
			fs.IntVarP(p, sw.name, sw.shortHand, n, desc)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	if required && !twelveFactorMode { // if the flag is required...
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode,
// else read the Main config file to find it.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, fnGetConfig func(key string, out interface{}) error) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if twelveFactorMode { // if we should read env vars...
		if err := helper.ReadValueFromEnv(flagNameToEnvVar(s.name), &s.val); err != nil {
			s.val = defaultValue
		}
	} else { // else check the config file or apply default...
		if err := fnGetConfig(s.name, &s.val); err != nil || s.val == "" { // if there was no key found...
			s.val = defaultValue
		}
	}
	return s
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// csvFlag splits a comma separated flag value, dropping blanks.
func csvFlag(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	retval := make([]string, 0)
	for _, v := range helper.CsvToStringSliceTrimSpaces(s) {
		if v != "" {
			retval = append(retval, v)
		}
	}
	return retval
}
