package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/aws/s3"
	"github.com/relloyd/xlpipe/config"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by xlpipe's actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	twelveFactorMode = os.Getenv(envVarTwelveFactorMode) != ""
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	twelveFactorVars = map[string]string{
		envVarCommand:   "",
		envVarLogLevel:  "",
		envVarStackDump: "",
	}
)

// twelveFactorActions maps the value of XP_COMMAND to the function that runs it.
// Flags are read from XP_<FLAG> variables when the commands are set up.
var twelveFactorActions = map[string]func() error{
	c.ActionFuncsCommandRun:             func() error { return runPipelineCommand(c.ActionFuncsCommandRun, &runArgs) },
	"extract":                           runExtract,
	c.ActionFuncsCommandLoad:            func() error { return runPipelineCommand(c.ActionFuncsCommandLoad, &loadArgs) },
	c.ActionFuncsCommandBuild:           func() error { return runPipelineCommand(c.ActionFuncsCommandBuild, &buildArgs) },
	c.ActionFuncsCommandTest:            func() error { return runPipelineCommand(c.ActionFuncsCommandTest, &testArgs) },
	c.ActionFuncsCommandCompile:         runCompile,
	c.ActionFuncsCommandCreateStage:     func() error { return runPipelineCommand(c.ActionFuncsCommandCreateStage, &createArgs) },
	c.ActionFuncsCommandCreateRawTables: func() error { return runPipelineCommand(c.ActionFuncsCommandCreateRawTables, &createArgs) },
}

func getConnectionHandler() actions.ConnectionHandler {
	if twelveFactorMode {
		return &TwelveFactorConnections{}
	}
	return config.Connections
}

func getConnectionGetterSetter() (actions.ConnectionGetterSetter, error) {
	if twelveFactorMode {
		return nil, fmt.Errorf("connections cannot be configured when %v is set (supply them using %v instead)",
			envVarTwelveFactorMode,
			helper.GetDsnEnvVarName("<connection-name>"))
	}
	return config.Connections, nil
}

func execute12FactorMode(acts map[string]func() error) (err error) {
	for k := range twelveFactorVars { // for each env variable that we need...
		twelveFactorVars[k] = os.Getenv(k)
	}
	if globals.logLevel == "" {
		globals.logLevel = helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn")
	}
	if twelveFactorVars[envVarStackDump] != "" {
		globals.stackDumpOnPanic = true
	}
	log, err := newLogger()
	if err != nil {
		fmt.Println(err)
		return err
	}
	log.Info("xlpipe is running in 12 Factor mode...")
	for k, v := range twelveFactorVars {
		log.Debug(k, "=", v)
	}
	command := strings.ToLower(strings.TrimSpace(twelveFactorVars[envVarCommand]))
	fn, ok := acts[command]
	if !ok {
		err = fmt.Errorf("invalid command %q in %v", command, envVarCommand)
		log.Error(err.Error())
		return
	}
	if err = fn(); err != nil {
		log.Error("Error: ", err)
	}
	return err
}

// TwelveFactorConnections reads connection details from XP_<NAME>_DSN only.
type TwelveFactorConnections struct{}

// GetConnectionType returns the type implied by the scheme of the DSN in the environment.
func (t *TwelveFactorConnections) GetConnectionType(connectionName string) (string, error) {
	d, err := t.GetConnectionDetails(connectionName)
	if err != nil {
		return "", err
	}
	return d.Type, nil
}

// GetConnectionDetails builds the connection from the DSN found in the environment for connectionName.
func (t *TwelveFactorConnections) GetConnectionDetails(connectionName string) (shared.ConnectionDetails, error) {
	k := helper.GetDsnEnvVarName(connectionName)
	var dsn string
	if err := helper.ReadValueFromEnv(k, &dsn); err != nil {
		return shared.ConnectionDetails{}, fmt.Errorf("unable to find value for %v in the environment: %w", k, err)
	}
	if strings.HasPrefix(dsn, c.ConnectionTypeS3+"://") { // if it's a bucket...
		b, err := s3.ParseDSN(dsn, helper.ReadValueFromEnvWithDefault(helper.GetRegionEnvVarName(connectionName), ""))
		if err != nil {
			return shared.ConnectionDetails{}, err
		}
		return shared.NewS3ConnectionDetails(connectionName, b.Name, b.Prefix, b.Region)
	}
	typ, err := config.DsnConnectionType(dsn)
	if err != nil {
		return shared.ConnectionDetails{}, err
	}
	return shared.NewDsnConnectionDetails(typ, connectionName, dsn)
}
