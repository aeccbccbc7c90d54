package actions

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/aws/s3"
	"github.com/relloyd/xlpipe/components"
	"github.com/relloyd/xlpipe/config"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/models"
	"github.com/relloyd/xlpipe/pipeline"
	"github.com/relloyd/xlpipe/rdbms"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/relloyd/xlpipe/stage"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

// PipelineArgs is the generic config collected by the CLI and handed to ActionLauncher.
type PipelineArgs struct {
	Ctx                       context.Context
	Log                       logger.Logger
	Project                   *config.Project
	Connections               ConnectionHandler
	Tables                    []string // source tables to extract or load; empty means all.
	Selector                  string   // models to build, test or compile; empty means all.
	KeepCsv                   bool     // set to true to skip the delete_<table>_csv tasks.
	DryRun                    bool     // set to true to print the plan instead of running it.
	Offline                   bool     // set to true when no warehouse connection is needed e.g. compile.
	OutputFormat              string   // yaml or json, used by compile and dry runs.
	Output                    io.Writer
	StatsDumpFrequencySeconds int
	CleanupHandler            pipeline.CleanupHandlerFunc // nil disables signal handling.
	Report                    *Report                     // filled in as the action runs.
}

// LoadResult is what a loader reported for one raw table.
type LoadResult struct {
	Table        string `json:"table"`
	File         string `json:"file"`
	RowsLoaded   int64  `json:"rowsLoaded"`
	RowsRejected int64  `json:"rowsRejected"`
}

// Report describes a finished action for the run summary.
type Report struct {
	RunID  string                `json:"runId"`
	Tasks  []pipeline.TaskStatus `json:"tasks"`
	Loads  []LoadResult          `json:"loads,omitempty"`
	Models []models.ModelResult  `json:"models,omitempty"`
}

// loaderLaunchFunc starts the component that copies a staged file into a raw table.
type loaderLaunchFunc func(cfg *PipelineConfig, ch *pipeline.Chain, db shared.Connector, input chan stream.Record, src config.SourceConfig) (chan stream.Record, chan components.ControlAction)

// stagerFactoryFunc builds the stage for a warehouse connection.
type stagerFactoryFunc func(cfg *PipelineConfig) (stage.Stager, error)

// PipelineConfig is the action config shared by every warehouse action.
type PipelineConfig struct {
	PipelineArgs
	WarehouseType  string
	ConnDetails    shared.ConnectionDetails
	Dialect        rdbms.Dialect
	StageName      string // used in COPY statements.
	StageDirectory string // set for local stages.
	fnNewStager    stagerFactoryFunc
	fnLaunchLoader loaderLaunchFunc
	fnOpenDb       func(log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error)
	db             shared.Connector
	stager         stage.Stager
	sm             stats.StatsManager
	modelProject   *models.Project
	tables         map[string]*tableState
}

type tableState struct {
	csvPath    string
	stagedName string
}

// SetupSnowflakePipeline copies values from genericCfg to actionCfg for a Snowflake warehouse.
// Files are staged on the internal stage, or on S3 behind an external stage.
func SetupSnowflakePipeline(genericCfg interface{}, actionCfg interface{}) error {
	tgt := actionCfg.(*PipelineConfig)
	if err := setupPipeline(genericCfg.(*PipelineArgs), tgt, c.ConnectionTypeSnowflake); err != nil {
		return err
	}
	p := tgt.Project
	switch p.Stage.Type {
	case c.StageTypeSnowflake:
		tgt.fnNewStager = func(cfg *PipelineConfig) (stage.Stager, error) {
			db, err := cfg.open()
			if err != nil {
				return nil, err
			}
			return stage.NewSnowflakeStager(cfg.Log, db, p.Stage.Name), nil
		}
	case c.StageTypeS3:
		tgt.fnNewStager = newS3Stager
	default:
		return fmt.Errorf("a snowflake warehouse cannot load from a stage of type %q: use %v or %v", p.Stage.Type, c.StageTypeSnowflake, c.StageTypeS3)
	}
	tgt.StageName = p.Stage.Name
	tgt.fnLaunchLoader = launchSnowflakeLoader
	return nil
}

// SetupSqlitePipeline copies values from genericCfg to actionCfg for a local SQLite warehouse.
// SQLite reads files from disk so the stage is always a local directory.
func SetupSqlitePipeline(genericCfg interface{}, actionCfg interface{}) error {
	tgt := actionCfg.(*PipelineConfig)
	if err := setupPipeline(genericCfg.(*PipelineArgs), tgt, c.ConnectionTypeSqlite); err != nil {
		return err
	}
	p := tgt.Project
	if p.Stage.Type != c.StageTypeLocal {
		tgt.Log.Debug("stage type ", p.Stage.Type, " is ignored by a sqlite warehouse: files are staged locally")
	}
	tgt.StageDirectory = p.Stage.Directory
	if tgt.StageDirectory == "" {
		tgt.StageDirectory = filepath.Join(p.WorkDir, "stage")
	}
	tgt.fnNewStager = func(cfg *PipelineConfig) (stage.Stager, error) {
		return stage.NewLocalStager(cfg.Log, cfg.StageDirectory), nil
	}
	tgt.fnLaunchLoader = launchCsvTableLoader
	return nil
}

func setupPipeline(src *PipelineArgs, tgt *PipelineConfig, warehouseType string) error {
	*tgt = PipelineConfig{PipelineArgs: *src, WarehouseType: warehouseType, fnOpenDb: rdbms.OpenDbConnection}
	if tgt.Log == nil || tgt.Project == nil {
		return errors.New("missing logger or project")
	}
	if tgt.Ctx == nil {
		tgt.Ctx = context.Background()
	}
	if tgt.Output == nil {
		tgt.Output = os.Stdout
	}
	if tgt.Report == nil {
		tgt.Report = &Report{}
	}
	var err error
	if tgt.Dialect, err = rdbms.GetDialect(warehouseType); err != nil {
		return err
	}
	if !tgt.DryRun && !tgt.Offline { // if we may need to open the warehouse...
		if tgt.Connections == nil {
			return errors.New("missing connections")
		}
		if tgt.ConnDetails, err = tgt.Connections.GetConnectionDetails(tgt.Project.Warehouse.Connection); err != nil {
			return err
		}
		if tgt.ConnDetails.Type != warehouseType {
			return fmt.Errorf("connection %q is type %q, expected %q", tgt.ConnDetails.LogicalName, tgt.ConnDetails.Type, warehouseType)
		}
	}
	if tgt.tables, err = selectTables(tgt.Project, tgt.Tables); err != nil {
		return err
	}
	return nil
}

// selectTables returns state for the requested source tables, or all of them.
func selectTables(p *config.Project, tables []string) (map[string]*tableState, error) {
	if len(tables) == 0 {
		tables = p.SourceTables()
	}
	m := make(map[string]*tableState, len(tables))
	for _, t := range tables {
		if _, ok := p.Source(t); !ok {
			return nil, fmt.Errorf("unknown source table %q: use one of %v", t, p.SourceTables())
		}
		m[t] = &tableState{csvPath: csvPath(p, t)}
	}
	return m, nil
}

// csvPath is where the extractor writes the CSV for table.
func csvPath(p *config.Project, table string) string {
	return filepath.Join(p.WorkDir, table+"."+c.CsvFileExtension)
}

// open connects to the warehouse on first use, in the project's database when one is set.
func (cfg *PipelineConfig) open() (shared.Connector, error) {
	if cfg.db != nil {
		return cfg.db, nil
	}
	if cfg.ConnDetails.Type == "" {
		return nil, errors.New("no warehouse connection is configured")
	}
	d, err := rdbms.WithDatabase(cfg.ConnDetails, cfg.Project.Database)
	if err != nil {
		return nil, err
	}
	db, err := cfg.fnOpenDb(cfg.Log, d)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to warehouse %q", cfg.ConnDetails.LogicalName)
	}
	cfg.db = db
	return db, nil
}

func (cfg *PipelineConfig) close() {
	if cfg.db != nil {
		cfg.db.Close()
		cfg.db = nil
	}
	cfg.stager = nil
}

func (cfg *PipelineConfig) getStager() (stage.Stager, error) {
	if cfg.stager == nil {
		s, err := cfg.fnNewStager(cfg)
		if err != nil {
			return nil, err
		}
		cfg.stager = s
	}
	return cfg.stager, nil
}

func (cfg *PipelineConfig) getModels() (*models.Project, error) {
	if cfg.modelProject == nil {
		p, err := cfg.Project.LoadModels()
		if err != nil {
			return nil, err
		}
		cfg.modelProject = p
	}
	return cfg.modelProject, nil
}

func (cfg *PipelineConfig) rawRelation(table string) string {
	return cfg.Dialect.Relation(cfg.Project.Warehouse.Schemas.Raw, table)
}

// newS3Stager uploads to the bucket of the stage connection and registers it as an external stage.
// A region in XP_<CONNECTION>_S3_REGION overrides the saved one.
func newS3Stager(cfg *PipelineConfig) (stage.Stager, error) {
	name := cfg.Project.Stage.Connection
	d, err := cfg.Connections.GetConnectionDetails(name)
	if err != nil {
		return nil, err
	}
	b, err := s3.NewAwsBucket(d)
	if err != nil {
		return nil, err
	}
	region := helper.ReadValueFromEnvWithDefault(helper.GetRegionEnvVarName(name), b.Region)
	client, err := s3.NewBasicClient(b.Name, region, b.Prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create S3 client for bucket %v", b.URL())
	}
	db, err := cfg.open()
	if err != nil {
		return nil, err
	}
	return stage.NewS3Stager(cfg.Log, client, db, cfg.Project.Stage.Name, cfg.Project.Stage.StorageIntegration), nil
}

func launchSnowflakeLoader(cfg *PipelineConfig, ch *pipeline.Chain, db shared.Connector, input chan stream.Record, src config.SourceConfig) (chan stream.Record, chan components.ControlAction) {
	name := "copy_" + src.Table
	return components.NewSnowflakeLoader(&components.SnowflakeLoaderConfig{
		Log:                     cfg.Log,
		Name:                    name,
		InputChan:               input,
		Db:                      db,
		InputChanField4FileName: components.Defaults.ChanField4StagedName,
		StageName:               cfg.StageName,
		TargetSchemaTableName:   rdbms.NewSchemaTable(cfg.Project.Warehouse.Schemas.Raw, src.Table),
		Truncate:                true,
		FnGetSnowflakeSqlSlice:  components.GetSqlSliceSnowflakeCopyInto,
		Ctx:                     cfg.Ctx,
		StepWatcher:             ch.StepWatcher(name),
		WaitCounter:             ch.Waiter(name),
		PanicHandlerFn:          ch.PanicHandlerFn,
	})
}

func launchCsvTableLoader(cfg *PipelineConfig, ch *pipeline.Chain, db shared.Connector, input chan stream.Record, src config.SourceConfig) (chan stream.Record, chan components.ControlAction) {
	name := "copy_" + src.Table
	return components.NewCsvTableLoader(&components.CsvTableLoaderConfig{
		Log:                     cfg.Log,
		Name:                    name,
		InputChan:               input,
		Db:                      db,
		InputChanField4FileName: components.Defaults.ChanField4StagedName,
		StageDirectory:          cfg.StageDirectory,
		TargetTable:             cfg.rawRelation(src.Table),
		TargetColumns:           src.Columns,
		Truncate:                true,
		TxtBatchNumRows:         c.TxtBatchNumRowsDefault,
		Ctx:                     cfg.Ctx,
		StepWatcher:             ch.StepWatcher(name),
		WaitCounter:             ch.Waiter(name),
		PanicHandlerFn:          ch.PanicHandlerFn,
	})
}
