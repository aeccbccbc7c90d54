package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ghodss/yaml"
	"github.com/relloyd/xlpipe/config"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/models"
	"github.com/relloyd/xlpipe/pipeline"
	"github.com/relloyd/xlpipe/rdbms"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testLog = logger.MustNewLogger("actions test", "error", false)

// fakeConnections satisfies ConnectionHandler without touching the home directory.
type fakeConnections map[string]shared.ConnectionDetails

func (f fakeConnections) GetConnectionDetails(name string) (shared.ConnectionDetails, error) {
	d, ok := f[name]
	if !ok {
		return d, config.KeyNotFoundError{}
	}
	return d, nil
}

func (f fakeConnections) GetConnectionType(name string) (string, error) {
	d, err := f.GetConnectionDetails(name)
	return d.Type, err
}

func writeWorkbook(t *testing.T, fileName string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(fileName))
}

// newTestProject writes a project file plus the three source workbooks and loads it.
func newTestProject(t *testing.T, projectYaml string) *config.Project {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0750))
	writeWorkbook(t, filepath.Join(data, "device.xlsx"), [][]interface{}{
		{"id", "type", "store_id"},
		{"D1", "1", "S1"},
	})
	writeWorkbook(t, filepath.Join(data, "store.xlsx"), [][]interface{}{
		{"id", "name", "address", "city", "country", "created_at", "typology", "customer_id", "notes"},
		{"S1", "Corner", "1 Road", "Berlin", "DE", "2020-01-01 00:00:00", "Beauty", "C1", "x"},
		{"S2", "Empty", "2 Road", "Lisbon", "PT", "2020-06-01 00:00:00", "Florist", "C2", "y"},
	})
	writeWorkbook(t, filepath.Join(data, "transaction.xlsx"), [][]interface{}{
		{"id", "device_id", "product_name", "product_sku", "category_name", "amount", "status", "card_number", "cvv", "created_at", "happened_at"},
		{"T1", "D1", "Soap", "AB1v23", "Care", "10.50", "accepted", "4111", "123", "2021-03-01 00:00:00", "2021-02-10 09:00:00"},
		{"T2", "D1", "Soap", "AB1v23", "Care", "4.50", "refused", "4111", "123", "2021-03-01 00:00:00", "2021-01-05 08:30:00"},
	})
	fn := filepath.Join(dir, "xlpipe.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(projectYaml), 0600))
	p, err := config.LoadProject(fn)
	require.NoError(t, err)
	return p
}

const sqliteProject = `
inputDir: data
warehouse:
  connection: local
stage:
  type: local
  directory: stage
`

func sqliteConnections(t *testing.T, p *config.Project) (fakeConnections, string) {
	dsn := rdbms.SqliteGetDSN(filepath.Join(filepath.Dir(p.FileName), "wh.db"))
	d, err := shared.NewDsnConnectionDetails(c.ConnectionTypeSqlite, "local", dsn)
	require.NoError(t, err)
	return fakeConnections{"local": d}, dsn
}

func TestRunPipelineOnSqlite(t *testing.T) {
	ctx := context.Background()
	p := newTestProject(t, sqliteProject)
	conns, dsn := sqliteConnections(t, p)

	for run := 0; run < 2; run++ { // a second run gives the same result.
		report := &Report{}
		err := ActionLauncher(&PipelineArgs{
			Log:         testLog,
			Project:     p,
			Connections: conns,
			Output:      &bytes.Buffer{},
			Report:      report,
		}, c.ActionFuncsCommandRun, c.ConnectionTypeSqlite)
		require.NoError(t, err)

		assert.NotEmpty(t, report.RunID)
		names := make([]string, len(report.Tasks))
		for idx, ts := range report.Tasks {
			names[idx] = ts.Task
			assert.Equal(t, pipeline.StatusComplete, ts.Status, ts.Task)
		}
		assert.Equal(t, "prepare", names[0])
		assert.Contains(t, names, "delete_store_csv")
		assert.Equal(t, "build_analyses", names[len(names)-1])

		require.Len(t, report.Loads, 3)
		loaded := make(map[string]int64)
		for _, l := range report.Loads {
			loaded[l.Table] = l.RowsLoaded
			assert.Zero(t, l.RowsRejected)
		}
		assert.Equal(t, map[string]int64{"raw_device": 1, "raw_store": 2, "raw_transaction": 2}, loaded)
		for _, m := range report.Models {
			assert.Equal(t, models.StatusSuccess, m.Status, m.Model)
		}
		for _, table := range p.SourceTables() {
			_, err = os.Stat(filepath.Join(p.WorkDir, table+".csv"))
			assert.True(t, os.IsNotExist(err), table)
		}

		conn, err := rdbms.OpenDbConnection(testLog, shared.ConnectionDetails{Type: c.ConnectionTypeSqlite, LogicalName: "check", Data: map[string]string{"dsn": dsn}})
		require.NoError(t, err)
		var sku string
		require.NoError(t, conn.QueryRowContext(ctx, "select product_sku from staging_stg_transactions where transaction_id = 'T1'").Scan(&sku))
		assert.Equal(t, "AB123", sku)
		var createdAt string
		require.NoError(t, conn.QueryRowContext(ctx, "select created_at from marts_dim_stores where store_id = 'S1'").Scan(&createdAt))
		assert.True(t, strings.HasPrefix(createdAt, "2021-01-05"), createdAt)
		n, err := rdbms.SqlQueryInt64(ctx, conn, "select count(*) from raw_transaction")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		conn.Close()
	}
}

func TestExtractThenLoad(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	conns, _ := sqliteConnections(t, p)

	err := ActionLauncher(&PipelineArgs{Log: testLog, Project: p, Connections: conns, Tables: []string{"device"}}, c.ActionFuncsCommandLoad, c.ConnectionTypeSqlite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run extract first")

	require.NoError(t, RunExtract(&PipelineArgs{Log: testLog, Project: p, Tables: []string{"device"}}))
	b, err := os.ReadFile(filepath.Join(p.WorkDir, "device.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,type,store_id\nD1,1,S1\n", string(b))

	require.NoError(t, ActionLauncher(&PipelineArgs{Log: testLog, Project: p, Connections: conns}, c.ActionFuncsCommandCreateRawTables, c.ConnectionTypeSqlite))
	report := &Report{}
	require.NoError(t, ActionLauncher(&PipelineArgs{Log: testLog, Project: p, Connections: conns, Tables: []string{"device"}, KeepCsv: true, Report: report}, c.ActionFuncsCommandLoad, c.ConnectionTypeSqlite))
	require.Len(t, report.Loads, 1)
	assert.Equal(t, LoadResult{Table: "raw_device", File: "device.csv", RowsLoaded: 1}, report.Loads[0])
	_, err = os.Stat(filepath.Join(p.WorkDir, "device.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(p.Stage.Directory, "device.csv"))
	assert.NoError(t, err)
}

func TestExtractWarnsAboutDroppedColumns(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	log := logger.MustNewLogger("test", "warn", false)
	hook := logtest.NewLocal(log.Logger.Logger)
	require.NoError(t, RunExtract(&PipelineArgs{Log: log, Project: p, Tables: []string{"store"}}))
	var warned string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "dropped") {
			warned = e.Message
		}
	}
	assert.Contains(t, warned, "source store")
	assert.Contains(t, warned, "notes")
	b, err := os.ReadFile(filepath.Join(p.WorkDir, "store.csv"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "notes")
}

func TestExtractMissingColumn(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	require.NoError(t, os.MkdirAll(p.WorkDir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(p.WorkDir, "device.csv"), []byte("id,type,store_id\nOLD,9,S9\n"), 0600))
	writeWorkbook(t, p.SpreadsheetPath(config.SourceConfig{Spreadsheet: "device.xlsx"}), [][]interface{}{
		{"id", "type"},
		{"D1", "1"},
	})
	err := RunExtract(&PipelineArgs{Log: testLog, Project: p, Tables: []string{"device"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store_id")
	_, err = os.Stat(filepath.Join(p.WorkDir, "device.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestConvertCancelledRemovesOlderCsv(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	stale := filepath.Join(p.WorkDir, "transaction.csv")
	require.NoError(t, os.MkdirAll(p.WorkDir, 0750))
	require.NoError(t, os.WriteFile(stale, []byte("id\nOLD\n"), 0600))
	defer func(d time.Duration) { pipeline.ShutdownTimeout = d }(pipeline.ShutdownTimeout)
	pipeline.ShutdownTimeout = time.Second

	cfg := &PipelineConfig{PipelineArgs: PipelineArgs{Log: testLog, Project: p}}
	var err error
	cfg.tables, err = selectTables(p, []string{"transaction"})
	require.NoError(t, err)
	src, ok := p.Source("transaction")
	require.True(t, ok)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = cfg.convert(ctx, src, cfg.tables["transaction"])
	assert.ErrorIs(t, err, context.Canceled)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "the CSV from an earlier run must not survive a failed conversion")
}

func TestDryRunPrintsPlan(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	out := &bytes.Buffer{}
	err := ActionLauncher(&PipelineArgs{Log: testLog, Project: p, DryRun: true, Tables: []string{"store"}, Output: out}, c.ActionFuncsCommandRun, c.ConnectionTypeSqlite)
	require.NoError(t, err)
	plan := struct {
		Tasks  []string `json:"tasks"`
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &plan))
	assert.Equal(t, []string{"prepare", "convert_store", "stage_store", "copy_store", "delete_store_csv", "build_staging", "build_marts", "build_analyses"}, plan.Tasks)
	assert.Len(t, plan.Models, 12)
	_, err = os.Stat(filepath.Join(p.WorkDir, "store.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnknownTable(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	err := ActionLauncher(&PipelineArgs{Log: testLog, Project: p, DryRun: true, Tables: []string{"nope"}}, c.ActionFuncsCommandRun, c.ConnectionTypeSqlite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source table")
}

func TestRunCompile(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	out := &bytes.Buffer{}
	err := ActionLauncher(&PipelineArgs{Log: testLog, Project: p, Offline: true, Selector: "stg_stores", OutputFormat: OutputFormatJson, Output: out}, c.ActionFuncsCommandCompile, c.ConnectionTypeSnowflake)
	require.NoError(t, err)
	var compiled []models.CompiledModel
	require.NoError(t, json.Unmarshal(out.Bytes(), &compiled))
	require.Len(t, compiled, 1)
	assert.Equal(t, "STAGING.stg_stores", compiled[0].Relation)
	assert.Contains(t, compiled[0].Sql, "RAW.store")

	out.Reset()
	err = ActionLauncher(&PipelineArgs{Log: testLog, Project: p, Offline: true, Selector: "stg_stores", Output: out}, c.ActionFuncsCommandCompile, c.ConnectionTypeSqlite)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "relation: staging_stg_stores")

	err = ActionLauncher(&PipelineArgs{Log: testLog, Project: p, Offline: true, Selector: "nope", Output: out}, c.ActionFuncsCommandCompile, c.ConnectionTypeSqlite)
	assert.Error(t, err)
}

func TestSnowflakeLoad(t *testing.T) {
	p := newTestProject(t, `
inputDir: data
warehouse:
  connection: wh
`)
	d, err := shared.NewDsnConnectionDetails(c.ConnectionTypeSnowflake, "wh", "snowflake://u:p@acct/db")
	require.NoError(t, err)
	cfg := &PipelineConfig{}
	require.NoError(t, SetupSnowflakePipeline(&PipelineArgs{
		Log:         testLog,
		Project:     p,
		Connections: fakeConnections{"wh": d},
		Tables:      []string{"device"},
		KeepCsv:     true,
	}, cfg))

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	cfg.fnOpenDb = func(logger.Logger, shared.ConnectionDetails) (shared.Connector, error) {
		return shared.NewMockConnection(db, c.ConnectionTypeSnowflake), nil
	}
	csv := filepath.Join(p.WorkDir, "device.csv")
	require.NoError(t, os.WriteFile(csv, []byte("id,type,store_id\nD1,1,S1\nD2,2,S1\n"), 0600))
	abs, err := filepath.Abs(csv)
	require.NoError(t, err)

	mock.ExpectExec("PUT file://" + filepath.ToSlash(abs) + " @SUMUP_RAW_DATA AUTO_COMPRESS=TRUE OVERWRITE=TRUE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("truncate table RAW.device").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`copy into RAW.device from '@SUMUP_RAW_DATA/device.csv.gz' file_format = (type = 'CSV' field_optionally_enclosed_by = '"' skip_header = 1) on_error = 'CONTINUE' force = true`).
		WillReturnRows(sqlmock.NewRows([]string{"file", "status", "rows_parsed", "rows_loaded", "errors_seen"}).
			AddRow("device.csv.gz", "PARTIALLY_LOADED", int64(3), int64(2), int64(1)))
	mock.ExpectClose()

	require.NoError(t, RunLoad(cfg))
	require.Len(t, cfg.Report.Loads, 1)
	assert.Equal(t, LoadResult{Table: "RAW.device", File: "device.csv.gz", RowsLoaded: 2, RowsRejected: 1}, cfg.Report.Loads[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnowflakeCreateStage(t *testing.T) {
	p := newTestProject(t, "inputDir: data\n")
	d, err := shared.NewDsnConnectionDetails(c.ConnectionTypeSnowflake, "warehouse", "snowflake://u:p@acct/db")
	require.NoError(t, err)
	cfg := &PipelineConfig{}
	p.Database = "ANALYTICS"
	require.NoError(t, SetupSnowflakePipeline(&PipelineArgs{Log: testLog, Project: p, Connections: fakeConnections{"warehouse": d}}, cfg))
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	var opened string
	cfg.fnOpenDb = func(_ logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		opened, _ = d.GetDsn()
		return shared.NewMockConnection(db, c.ConnectionTypeSnowflake), nil
	}
	mock.ExpectExec("create stage if not exists SUMUP_RAW_DATA").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()
	require.NoError(t, RunCreateStage(cfg))
	sd, err := rdbms.SnowflakeParseDSN(opened)
	require.NoError(t, err)
	assert.Equal(t, "ANALYTICS", sd.DBName)
	require.Len(t, cfg.Report.Tasks, 1)
	assert.Equal(t, "create_stage", cfg.Report.Tasks[0].Task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupErrors(t *testing.T) {
	p := newTestProject(t, sqliteProject)
	conns, _ := sqliteConnections(t, p)

	err := SetupSnowflakePipeline(&PipelineArgs{Log: testLog, Project: p, DryRun: true}, &PipelineConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load from a stage")

	err = SetupSnowflakePipeline(&PipelineArgs{Log: testLog, Project: p, Connections: conns}, &PipelineConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected "snowflake"`)

	err = SetupSqlitePipeline(&PipelineArgs{Log: testLog, Project: p}, &PipelineConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing connections")

	assert.Error(t, SetupSqlitePipeline(&PipelineArgs{Project: p}, &PipelineConfig{}))
}

func TestGetAction(t *testing.T) {
	_, err := GetAction("nope", c.ConnectionTypeSqlite)
	assert.Error(t, err)
	_, err = GetAction(c.ActionFuncsCommandRun, "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snowflake, sqlite")
	a, err := GetAction(c.ActionFuncsCommandBuild, c.ConnectionTypeSqlite)
	require.NoError(t, err)
	assert.NotNil(t, a.FnAction)
	assert.True(t, IsSupportedWarehouseType(c.ConnectionTypeSnowflake))
	assert.False(t, IsSupportedWarehouseType(c.ConnectionTypeS3))
	assert.Error(t, ActionLauncher(PipelineArgs{}, c.ActionFuncsCommandRun, c.ConnectionTypeSqlite))
}

func TestWriteDefinition(t *testing.T) {
	out := &bytes.Buffer{}
	v := LoadResult{Table: "raw_store", RowsLoaded: 2}
	require.NoError(t, WriteDefinition(out, v, ""))
	assert.Equal(t, "file: \"\"\nrowsLoaded: 2\nrowsRejected: 0\ntable: raw_store\n", out.String())
	out.Reset()
	require.NoError(t, WriteDefinition(out, v, OutputFormatJson))
	assert.Contains(t, out.String(), `"rowsLoaded": 2`)
	assert.Error(t, WriteDefinition(out, v, "xml"))
}

func TestConnections(t *testing.T) {
	out := &bytes.Buffer{}
	f := config.NewConfigFileWithDir(t.TempDir(), config.ConnectionsConfigFileFullName)
	cfg := &ConnectionConfig{ConfigFile: f, LogicalName: "local", Type: c.ConnectionTypeSqlite, SqlitePath: "/tmp/xp.db", Output: out}
	require.NoError(t, RunConnectionAdd(cfg))
	assert.Equal(t, "Connection \"local\" added\n", out.String())

	err := RunConnectionAdd(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exists")
	cfg.Force = true
	require.NoError(t, RunConnectionAdd(cfg))

	typ, err := f.GetConnectionType("local")
	require.NoError(t, err)
	assert.Equal(t, c.ConnectionTypeSqlite, typ)

	sf := &ConnectionConfig{ConfigFile: f, LogicalName: "wh", Type: c.ConnectionTypeSnowflake, Output: out}
	err = RunConnectionAdd(sf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account")
	sf.Snowflake = rdbms.SnowflakeConnectionDetails{Account: "acct", DBName: "SUMUP", Schema: "RAW", User: "u", Password: "secret", Warehouse: "WH"}
	require.NoError(t, RunConnectionAdd(sf))

	out.Reset()
	require.NoError(t, RunConnectionList(&ConnectionConfig{ConfigFile: f, Output: out}))
	assert.Contains(t, out.String(), "local:\n")
	assert.Contains(t, out.String(), "wh:\n")
	assert.NotContains(t, out.String(), "secret")

	assert.Error(t, RunConnectionAdd(&ConnectionConfig{ConfigFile: f, LogicalName: "bad name", Type: c.ConnectionTypeSqlite, SqlitePath: "x"}))
	assert.Error(t, RunConnectionAdd(&ConnectionConfig{ConfigFile: f, LogicalName: "pg", Type: "postgres"}))

	out.Reset()
	require.NoError(t, RunConnectionRemove(&ConnectionConfig{ConfigFile: f, LogicalName: "local", Output: out}))
	assert.Equal(t, "Connection \"local\" removed\n", out.String())
	assert.Error(t, RunConnectionRemove(&ConnectionConfig{ConfigFile: f, LogicalName: "local", Output: out}))
	keys, err := f.GetAllKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"wh"}, keys)
}

func TestDefaults(t *testing.T) {
	out := &bytes.Buffer{}
	f := config.NewConfigFileWithDir(t.TempDir(), config.MainFileFullName)
	require.NoError(t, RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "log-level", Value: "info", Output: out}))
	assert.Error(t, RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "log-level", Value: "debug", Output: out}))
	require.NoError(t, RunDefaultAdd(&DefaultConfig{ConfigFile: f, Key: "log-level", Value: "debug", Force: true, Output: out}))
	assert.Error(t, RunDefaultAdd(&DefaultConfig{ConfigFile: f, Value: "x", Output: out}))

	out.Reset()
	require.NoError(t, RunDefaultList(&DefaultConfig{ConfigFile: f, Output: out}))
	assert.Equal(t, "log-level=debug\n", out.String())

	require.NoError(t, RunDefaultRemove(&DefaultConfig{ConfigFile: f, Key: "log-level", Output: out}))
	assert.Error(t, RunDefaultRemove(&DefaultConfig{ConfigFile: f, Key: "log-level", Output: out}))
}
