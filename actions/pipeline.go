package actions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/components"
	"github.com/relloyd/xlpipe/config"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/file"
	"github.com/relloyd/xlpipe/models"
	"github.com/relloyd/xlpipe/pipeline"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

// step is a bit set of the kinds of task an action runs.
type step uint32

const (
	stepPrepare step = 1 << iota
	stepCreateStage
	stepCreateRawTables
	stepConvert
	stepStage
	stepCopy
	stepDelete
	stepBuild
	stepTest
)

const (
	stepsRun  = stepPrepare | stepConvert | stepStage | stepCopy | stepDelete | stepBuild
	stepsLoad = stepStage | stepCopy | stepDelete
)

// RunPipeline converts every spreadsheet, loads the raw tables and rebuilds all model layers.
func RunPipeline(cfg interface{}) error {
	return cfg.(*PipelineConfig).run(stepsRun)
}

// RunLoad stages and copies CSV files written by an earlier extract.
func RunLoad(cfg interface{}) error {
	return cfg.(*PipelineConfig).run(stepsLoad)
}

// RunBuild rebuilds the selected models and runs their tests.
func RunBuild(cfg interface{}) error {
	return cfg.(*PipelineConfig).run(stepBuild)
}

// RunTest runs the tests of the selected models against the relations already built.
func RunTest(cfg interface{}) error {
	return cfg.(*PipelineConfig).run(stepTest)
}

// RunCreateStage creates the stage files are loaded from.
func RunCreateStage(cfg interface{}) error {
	return cfg.(*PipelineConfig).run(stepCreateStage)
}

// RunCreateRawTables creates the raw schema and a varchar table per source.
func RunCreateRawTables(cfg interface{}) error {
	return cfg.(*PipelineConfig).run(stepCreateRawTables)
}

// RunExtract converts the spreadsheets of the selected sources to CSV files in the work directory.
// No warehouse is involved.
func RunExtract(args *PipelineArgs) error {
	cfg := &PipelineConfig{PipelineArgs: *args}
	if cfg.Log == nil || cfg.Project == nil {
		return errors.New("missing logger or project")
	}
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Report == nil {
		cfg.Report = &Report{}
	}
	var err error
	if cfg.tables, err = selectTables(cfg.Project, cfg.Tables); err != nil {
		return err
	}
	return cfg.run(stepConvert)
}

// Plan is what a dry run prints.
type Plan struct {
	Tasks  []string                `json:"tasks"`
	Models []*models.CompiledModel `json:"models,omitempty"`
}

func (cfg *PipelineConfig) run(steps step) error {
	defer cfg.close()
	tasks, err := cfg.tasks(steps)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		return cfg.writePlan(tasks, steps)
	}
	var sm stats.StatsManager
	if cfg.StatsDumpFrequencySeconds > 0 {
		rs := stats.NewRunStats(cfg.Log, stats.SetStatsDumpFrequency(cfg.StatsDumpFrequencySeconds))
		rs.StartDumping()
		defer rs.StopDumping()
		sm = rs
	}
	cfg.sm = sm
	r := pipeline.NewRunner(cfg.Log, tasks, pipeline.SetCleanupHandler(cfg.CleanupHandler))
	cfg.Report.RunID = r.Guid()
	err = r.Run(cfg.Ctx)
	cfg.Report.Tasks = r.Statuses()
	return err
}

// tasks returns the ordered task list for steps.
func (cfg *PipelineConfig) tasks(steps step) ([]pipeline.Task, error) {
	p := cfg.Project
	tasks := make([]pipeline.Task, 0)
	add := func(name string, fn func(ctx context.Context) error) {
		tasks = append(tasks, pipeline.Task{Name: name, Run: fn})
	}
	if steps&stepPrepare != 0 {
		add("prepare", cfg.prepare)
	}
	if steps&stepCreateStage != 0 {
		add("create_stage", cfg.createStage)
	}
	if steps&stepCreateRawTables != 0 {
		add("create_raw_tables", func(ctx context.Context) error {
			if err := cfg.createSchemas(ctx, p.Warehouse.Schemas.Raw); err != nil {
				return err
			}
			return cfg.createRawTables(ctx)
		})
	}
	for _, src := range p.Sources { // for each source in project order...
		src := src
		st, ok := cfg.tables[src.Table]
		if !ok { // if the table was not selected...
			continue
		}
		if steps&stepConvert != 0 {
			add("convert_"+src.Table, func(ctx context.Context) error { return cfg.convert(ctx, src, st) })
		}
		if steps&stepStage != 0 {
			add("stage_"+src.Table, func(ctx context.Context) error { return cfg.stageFile(ctx, src, st) })
		}
		if steps&stepCopy != 0 {
			add("copy_"+src.Table, func(ctx context.Context) error { return cfg.copyInto(ctx, src, st) })
		}
		if steps&stepDelete != 0 && !cfg.KeepCsv {
			add("delete_"+src.Table+"_csv", func(ctx context.Context) error { return cfg.deleteCsv(ctx, src, st) })
		}
	}
	if steps&(stepBuild|stepTest) != 0 {
		byLayer, err := cfg.selectedModelsByLayer()
		if err != nil {
			return nil, err
		}
		for _, layer := range c.Layers { // for each layer in build order...
			names, ok := byLayer[layer]
			if !ok {
				continue
			}
			selector := strings.Join(names, ",")
			if steps&stepBuild != 0 {
				add("build_"+layer, func(ctx context.Context) error { return cfg.buildModels(ctx, selector, true) })
			} else {
				add("test_"+layer, func(ctx context.Context) error { return cfg.buildModels(ctx, selector, false) })
			}
		}
	}
	if len(tasks) == 0 {
		return nil, errors.New("nothing to do")
	}
	return tasks, nil
}

// selectedModelsByLayer returns the names of the models matching Selector per layer, in build order.
func (cfg *PipelineConfig) selectedModelsByLayer() (map[string][]string, error) {
	mp, err := cfg.getModels()
	if err != nil {
		return nil, err
	}
	selected, err := mp.Select(cfg.Selector)
	if err != nil {
		return nil, err
	}
	m := make(map[string][]string)
	for _, model := range selected {
		m[model.Layer] = append(m[model.Layer], model.Name)
	}
	return m, nil
}

func (cfg *PipelineConfig) writePlan(tasks []pipeline.Task, steps step) error {
	plan := Plan{Tasks: make([]string, len(tasks))}
	for idx, t := range tasks {
		plan.Tasks[idx] = t.Name
	}
	if steps&stepBuild != 0 && cfg.Dialect != nil {
		var err error
		if plan.Models, err = cfg.compile(); err != nil {
			return err
		}
	}
	return WriteDefinition(cfg.Output, plan, cfg.OutputFormat)
}

// prepare creates the schemas, the stage and the raw tables.
func (cfg *PipelineConfig) prepare(ctx context.Context) error {
	s := cfg.Project.Warehouse.Schemas
	if err := cfg.createSchemas(ctx, s.Raw, s.Staging, s.Marts, s.Analyses); err != nil {
		return err
	}
	if err := cfg.createStage(ctx); err != nil {
		return err
	}
	return cfg.createRawTables(ctx)
}

func (cfg *PipelineConfig) createSchemas(ctx context.Context, schemas ...string) error {
	db, err := cfg.open()
	if err != nil {
		return err
	}
	stmts := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		stmts = append(stmts, cfg.Dialect.CreateSchema(schema)...)
	}
	if _, err = pipeline.ExecStatements(ctx, cfg.Log, cfg.sm, "create_schemas", db, stmts); err != nil {
		return errors.Wrapf(err, "unable to create schemas %v", schemas)
	}
	return nil
}

func (cfg *PipelineConfig) createStage(ctx context.Context) error {
	s, err := cfg.getStager()
	if err != nil {
		return err
	}
	return s.Create(ctx)
}

func (cfg *PipelineConfig) createRawTables(ctx context.Context) error {
	db, err := cfg.open()
	if err != nil {
		return err
	}
	stmts := make([]string, 0, len(cfg.Project.Sources))
	for _, src := range cfg.Project.Sources {
		stmts = append(stmts, cfg.Dialect.CreateRawTable(cfg.rawRelation(src.Table), src.Columns))
	}
	if _, err = pipeline.ExecStatements(ctx, cfg.Log, cfg.sm, "create_raw_tables", db, stmts); err != nil {
		return errors.Wrap(err, "unable to create raw tables")
	}
	return nil
}

// convert reads the whole workbook and writes the configured columns to <workDir>/<table>.csv.
// A failure removes the CSV, whether partial or left by an earlier run, so a later load can't pick up stale rows.
func (cfg *PipelineConfig) convert(ctx context.Context, src config.SourceConfig, st *tableState) (err error) {
	defer func() {
		if err != nil {
			if rmErr := os.Remove(st.csvPath); rmErr == nil {
				cfg.Log.Debug("removed CSV file ", st.csvPath, " after a failed conversion")
			}
		}
	}()
	sheet, err := file.ReadWorkbook(cfg.Log, cfg.Project.SpreadsheetPath(src))
	if err != nil {
		return err
	}
	if err = checkHeader(sheet, src); err != nil {
		return err
	}
	if extra := extraColumns(sheet, src); len(extra) > 0 {
		cfg.Log.Warn("source ", src.Table, ": workbook ", sheet.WorkbookPath, " has columns that are not in the project and will be dropped: ", extra)
	}
	if err = os.MkdirAll(cfg.Project.WorkDir, 0750); err != nil {
		return errors.Wrapf(err, "unable to create work directory %v", cfg.Project.WorkDir)
	}
	recs, err := pipeline.RunComponents(ctx, cfg.Log, cfg.sm, func(ch *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
		inputName := "read_" + src.Table
		rows, rowsControl := components.NewSheetRowInput(&components.SheetRowInputConfig{
			Log:            cfg.Log,
			Name:           inputName,
			Sheet:          sheet,
			StepWatcher:    ch.StepWatcher(inputName),
			WaitCounter:    ch.Waiter(inputName),
			PanicHandlerFn: ch.PanicHandlerFn,
		})
		writerName := "write_" + src.Table
		files, filesControl := components.NewCsvFileWriter(&components.CsvFileWriterConfig{
			Log:                      cfg.Log,
			Name:                     writerName,
			InputChan:                rows,
			OutputDir:                cfg.Project.WorkDir,
			FileNamePrefix:           src.Table,
			FileNameExtension:        c.CsvFileExtension,
			HeaderFields:             src.Columns,
			OutputChanField4FilePath: components.Defaults.ChanField4CSVFileName,
			StepWatcher:              ch.StepWatcher(writerName),
			WaitCounter:              ch.Waiter(writerName),
			PanicHandlerFn:           ch.PanicHandlerFn,
		})
		return files, []chan components.ControlAction{rowsControl, filesControl}
	})
	if err != nil {
		return errors.Wrapf(err, "unable to convert %v", sheet.WorkbookPath)
	}
	if len(recs) != 1 {
		return fmt.Errorf("expected one CSV file for source %v but got %v", src.Table, len(recs))
	}
	st.csvPath = recs[0].GetDataAsString(cfg.Log, components.Defaults.ChanField4CSVFileName)
	cfg.Log.Info("converted ", len(sheet.Rows), " rows from ", sheet.WorkbookPath, " to ", st.csvPath)
	return nil
}

// checkHeader makes sure every configured column is in the sheet.
func checkHeader(sheet *file.Sheet, src config.SourceConfig) error {
	have := make(map[string]struct{}, len(sheet.Header))
	for _, h := range sheet.Header {
		have[h] = struct{}{}
	}
	missing := make([]string, 0)
	for _, col := range src.Columns {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("workbook %v is missing columns %v for source %v", sheet.WorkbookPath, missing, src.Table)
	}
	return nil
}

func extraColumns(sheet *file.Sheet, src config.SourceConfig) []string {
	want := make(map[string]struct{}, len(src.Columns))
	for _, col := range src.Columns {
		want[col] = struct{}{}
	}
	extra := make([]string, 0)
	for _, h := range sheet.Header {
		if _, ok := want[h]; !ok {
			extra = append(extra, h)
		}
	}
	return extra
}

// singleRecordChan returns a closed channel holding one record with field set to value.
func singleRecordChan(field string, value string) chan stream.Record {
	ch := make(chan stream.Record, 1)
	rec := stream.NewRecord()
	rec.SetData(field, value)
	ch <- rec
	close(ch)
	return ch
}

func (cfg *PipelineConfig) stageFile(ctx context.Context, src config.SourceConfig, st *tableState) error {
	if _, err := os.Stat(st.csvPath); err != nil {
		return errors.Wrapf(err, "CSV file for source %v not found: run extract first", src.Table)
	}
	s, err := cfg.getStager()
	if err != nil {
		return err
	}
	recs, err := pipeline.RunComponents(ctx, cfg.Log, cfg.sm, func(ch *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
		name := "stage_" + src.Table
		out, control := components.NewCopyFilesToStage(&components.CopyFilesToStageConfig{
			Log:                        cfg.Log,
			Name:                       name,
			InputChan:                  singleRecordChan(components.Defaults.ChanField4CSVFileName, st.csvPath),
			FileNameChanField:          components.Defaults.ChanField4CSVFileName,
			OutputChanField4StagedName: components.Defaults.ChanField4StagedName,
			Stager:                     s,
			Ctx:                        ctx,
			StepWatcher:                ch.StepWatcher(name),
			WaitCounter:                ch.Waiter(name),
			PanicHandlerFn:             ch.PanicHandlerFn,
		})
		return out, []chan components.ControlAction{control}
	})
	if err != nil {
		return err
	}
	if len(recs) != 1 {
		return fmt.Errorf("expected one staged file for source %v but got %v", src.Table, len(recs))
	}
	st.stagedName = recs[0].GetDataAsString(cfg.Log, components.Defaults.ChanField4StagedName)
	return nil
}

// copyInto truncates the raw table and loads the staged file into it.
func (cfg *PipelineConfig) copyInto(ctx context.Context, src config.SourceConfig, st *tableState) error {
	if st.stagedName == "" {
		return fmt.Errorf("no staged file for source %v", src.Table)
	}
	db, err := cfg.open()
	if err != nil {
		return err
	}
	recs, err := pipeline.RunComponents(ctx, cfg.Log, cfg.sm, func(ch *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
		out, control := cfg.fnLaunchLoader(cfg.withContext(ctx), ch, db, singleRecordChan(components.Defaults.ChanField4StagedName, st.stagedName), src)
		return out, []chan components.ControlAction{control}
	})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		res := LoadResult{
			Table:        cfg.rawRelation(src.Table),
			File:         st.stagedName,
			RowsLoaded:   toInt64(rec.GetData(components.Defaults.ChanField4RowsLoaded)),
			RowsRejected: toInt64(rec.GetData(components.Defaults.ChanField4RowsRejected)),
		}
		if res.RowsRejected > 0 {
			cfg.Log.Warn(res.Table, " rejected ", res.RowsRejected, " rows from ", res.File)
		}
		cfg.Report.Loads = append(cfg.Report.Loads, res)
	}
	return nil
}

// withContext returns a copy of cfg whose Ctx is ctx, so loaders stop with the task.
func (cfg *PipelineConfig) withContext(ctx context.Context) *PipelineConfig {
	cp := *cfg
	cp.Ctx = ctx
	return &cp
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// deleteCsv removes the local CSV once it is loaded, along with its staged copy. Failures are only logged.
func (cfg *PipelineConfig) deleteCsv(ctx context.Context, src config.SourceConfig, st *tableState) error {
	if st.stagedName != "" {
		if s, err := cfg.getStager(); err != nil {
			cfg.Log.Warn("unable to remove staged file ", st.stagedName, ": ", err)
		} else if err = s.Remove(ctx, st.stagedName); err != nil {
			cfg.Log.Warn(err)
		} else {
			cfg.Log.Debug("removed staged file ", st.stagedName, " from ", s.Location())
		}
	}
	_, err := pipeline.RunComponents(ctx, cfg.Log, cfg.sm, func(ch *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
		name := "delete_" + src.Table + "_csv"
		out, control := components.NewFileRemover(&components.FileRemoverConfig{
			Log:               cfg.Log,
			Name:              name,
			InputChan:         singleRecordChan(components.Defaults.ChanField4CSVFileName, st.csvPath),
			FileNameChanField: components.Defaults.ChanField4CSVFileName,
			StepWatcher:       ch.StepWatcher(name),
			WaitCounter:       ch.Waiter(name),
			PanicHandlerFn:    ch.PanicHandlerFn,
		})
		return out, []chan components.ControlAction{control}
	})
	return err
}

func (cfg *PipelineConfig) modelRunner() (*models.Runner, error) {
	mp, err := cfg.getModels()
	if err != nil {
		return nil, err
	}
	r := &models.Runner{Log: cfg.Log, Project: mp, Target: cfg.Project.Target(cfg.Dialect), Stats: cfg.sm}
	return r, nil
}

// buildModels builds (or only tests) the models named in selector and records their results.
func (cfg *PipelineConfig) buildModels(ctx context.Context, selector string, build bool) error {
	r, err := cfg.modelRunner()
	if err != nil {
		return err
	}
	if r.Db, err = cfg.open(); err != nil {
		return err
	}
	var results []models.ModelResult
	if build {
		results, err = r.Build(ctx, selector)
	} else {
		results, err = r.Test(ctx, selector)
	}
	cfg.Report.Models = append(cfg.Report.Models, results...)
	return err
}

func (cfg *PipelineConfig) compile() ([]*models.CompiledModel, error) {
	r, err := cfg.modelRunner()
	if err != nil {
		return nil, err
	}
	return r.Compile(cfg.Selector)
}

// RunCompile writes the compiled SQL of the selected models to Output.
func RunCompile(cfg interface{}) error {
	pc := cfg.(*PipelineConfig)
	compiled, err := pc.compile()
	if err != nil {
		return err
	}
	return WriteDefinition(pc.Output, compiled, pc.OutputFormat)
}
