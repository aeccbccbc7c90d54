package actions

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/relloyd/xlpipe/constants"
)

type Action struct {
	FnAction   func(actionCfg interface{}) error                         // the function to execute the action
	ActionCfg  interface{}                                               // the config struct to pass to the FnAction
	FnSetupCfg func(genericCfg interface{}, actionCfg interface{}) error // the function to convert generic cfg to action-specific config for the FnAction
}

// ActionLauncher will:
// 1) find the Action{} registered for command and warehouseType.
// 2) call Action.FnSetupCfg() to populate Action.ActionCfg{} from cfg.
// 3) start the action by calling Action.FnAction().
func ActionLauncher(cfg interface{}, command string, warehouseType string) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("expected pointer to config in variable cfg to be supplied to ActionLauncher")
	}
	a, err := GetAction(command, warehouseType)
	if err != nil {
		return err
	}
	if err = a.FnSetupCfg(cfg, a.ActionCfg); err != nil {
		return err
	}
	return a.FnAction(a.ActionCfg)
}

// ActionFuncs is a register of all supported actions by command and warehouse type.
// Keys of the inner maps are used to validate database connections before they are added.
// See RunConnectionAdd().
var ActionFuncs = map[string]map[string]Action{
	constants.ActionFuncsCommandRun: {
		constants.ConnectionTypeSnowflake: Action{FnAction: RunPipeline, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunPipeline, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
	constants.ActionFuncsCommandLoad: {
		constants.ConnectionTypeSnowflake: Action{FnAction: RunLoad, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunLoad, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
	constants.ActionFuncsCommandBuild: {
		constants.ConnectionTypeSnowflake: Action{FnAction: RunBuild, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunBuild, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
	constants.ActionFuncsCommandTest: {
		constants.ConnectionTypeSnowflake: Action{FnAction: RunTest, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunTest, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
	constants.ActionFuncsCommandCompile: {
		// Compiling only needs the dialect so no connection is opened.
		constants.ConnectionTypeSnowflake: Action{FnAction: RunCompile, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunCompile, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
	constants.ActionFuncsCommandCreateStage: {
		constants.ConnectionTypeSnowflake: Action{FnAction: RunCreateStage, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunCreateStage, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
	constants.ActionFuncsCommandCreateRawTables: {
		constants.ConnectionTypeSnowflake: Action{FnAction: RunCreateRawTables, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSnowflakePipeline},
		constants.ConnectionTypeSqlite:    Action{FnAction: RunCreateRawTables, ActionCfg: &PipelineConfig{}, FnSetupCfg: SetupSqlitePipeline},
	},
}

// GetAction returns the Action registered for command and warehouseType.
func GetAction(command string, warehouseType string) (Action, error) {
	c, ok := ActionFuncs[command]
	if !ok {
		return Action{}, fmt.Errorf("unsupported command %q", command)
	}
	a, ok := c[warehouseType]
	if !ok {
		return Action{}, fmt.Errorf("unsupported %v action for warehouse type %q: use one of %v", command, warehouseType, GetSupportedWarehouseTypes())
	}
	return a, nil
}

// GetSupportedWarehouseTypes returns a comma separated list of the warehouse types found in ActionFuncs.
func GetSupportedWarehouseTypes() string {
	m := make(map[string]struct{})
	for _, command := range ActionFuncs { // for each command...
		for t := range command { // for each warehouse type...
			m[t] = struct{}{}
		}
	}
	s := make([]string, 0, len(m))
	for k := range m {
		s = append(s, k)
	}
	sort.Strings(s)
	return strings.Join(s, ", ")
}

// IsSupportedWarehouseType returns true if some action is registered for warehouse type t.
func IsSupportedWarehouseType(t string) bool {
	for _, command := range ActionFuncs {
		if _, ok := command[t]; ok {
			return true
		}
	}
	return false
}
