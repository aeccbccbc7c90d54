package components

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

// SnowflakeSqlBuilderFunc should return a slice of SQL statements for NewSnowflakeLoader to execute.
type SnowflakeSqlBuilderFunc func(tableName rdbms.SchemaTable, stageName string, fileName string, truncate bool) []string

type SnowflakeLoaderConfig struct {
	Log                     logger.Logger
	Name                    string
	InputChan               chan stream.Record
	Db                      shared.Connector        // connection to target snowflake database abstracted via interface.
	InputChanField4FileName string                  // the field name found on InputChan that contains the staged file name to load.
	StageName               string                  // the stage that holds the files to load.
	TargetSchemaTableName   rdbms.SchemaTable       // the [schema.]table to load into.
	Truncate                bool                    // set to true to empty the table before each file is copied in.
	FnGetSnowflakeSqlSlice  SnowflakeSqlBuilderFunc // func that will be used by NewSnowflakeLoader to fetch a slice of SQL statements to execute per input row.
	Ctx                     context.Context
	StepWatcher             *stats.StepWatcher
	WaitCounter             ComponentWaiter
	PanicHandlerFn          PanicHandlerFunc
}

// NewSnowflakeLoader reads the input channel of records expecting each to name a staged file.
// Per file it executes the statements returned by cfg.FnGetSnowflakeSqlSlice, one at a time with autocommit.
// There is no transaction spanning the statements: a failed COPY leaves the table truncated.
// COPY statements are run as queries so the rows loaded and rejected can be read from their results.
// InputChan rows are copied to the outputChan with the rows loaded and rejected added.
func NewSnowflakeLoader(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*SnowflakeLoaderConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	if cfg.Db == nil {
		cfg.Log.Panic(cfg.Name, " error - missing database connection.")
	}
	if cfg.InputChanField4FileName == "" {
		cfg.InputChanField4FileName = Defaults.ChanField4StagedName
	}
	if cfg.FnGetSnowflakeSqlSlice == nil {
		cfg.FnGetSnowflakeSqlSlice = GetSqlSliceSnowflakeCopyInto
	}
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	outputChan = make(chan stream.Record, c.ChanSize)
	controlChan = make(chan ControlAction, 1)
	go func() {
		if cfg.PanicHandlerFn != nil {
			defer cfg.PanicHandlerFn()
		}
		defer startComponent(cfg.WaitCounter)()
		addRows, stop := startWatching(cfg.StepWatcher)
		defer stop()
		cfg.Log.Info(cfg.Name, " is running")
		for {
			select {
			case rec, ok := <-cfg.InputChan:
				if !ok {
					cfg.InputChan = nil
					break
				}
				fileName := rec.GetDataAsString(cfg.Log, cfg.InputChanField4FileName)
				cfg.Log.Info(cfg.Name, " loading into table '", cfg.TargetSchemaTableName.SchemaTable, "' from stage '", cfg.StageName, "' file name '", fileName, "'")
				var rowsLoaded, rowsRejected int64
				for _, stmt := range cfg.FnGetSnowflakeSqlSlice(cfg.TargetSchemaTableName, cfg.StageName, fileName, cfg.Truncate) {
					cfg.Log.Debug(cfg.Name, " executing query: ", stmt)
					if isCopyInto(stmt) { // if the statement returns a row per file loaded...
						res := &copyIntoResult{}
						err, shutdown := safeQuery(cfg.Ctx, cfg.Log, cfg.Db, controlChan, stmt, res)
						if shutdown {
							cfg.Log.Info(cfg.Name, " shutdown")
							return
						}
						if err != nil {
							cfg.Log.Panic(cfg.Name, " error received while executing SQL: '", stmt, "': ", err)
						}
						rowsLoaded, rowsRejected = res.rowsLoaded, res.errorsSeen
						cfg.Log.Info(cfg.Name, " rows loaded: ", rowsLoaded, "; rows rejected: ", rowsRejected)
						continue
					}
					res, err, shutdown := safeExec(cfg.Ctx, cfg.Db, controlChan, stmt)
					if shutdown {
						cfg.Log.Info(cfg.Name, " shutdown")
						return
					}
					rowsLoaded = assertExec(cfg.Log, cfg.Name, stmt, res, err)
				}
				addRows(rowsLoaded)
				rec.SetData(Defaults.ChanField4RowsLoaded, rowsLoaded)
				rec.SetData(Defaults.ChanField4RowsRejected, rowsRejected)
				rec.SetData(Defaults.ChanField4TableName, cfg.TargetSchemaTableName.SchemaTable)
				if !safeSend(rec, outputChan, controlChan, sendNilControlResponse) {
					cfg.Log.Info(cfg.Name, " shutdown")
					return
				}
			case controlAction := <-controlChan:
				controlAction.ResponseChan <- nil
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil {
				break
			}
		}
		close(outputChan)
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return outputChan, controlChan
}

// assertExec logs the rows affected and panics on err.
// It returns the rows affected, or zero when the driver can't say.
func assertExec(log logger.Logger, name string, query string, res shared.Result, err error) (rowsAffected int64) {
	if err != nil {
		log.Panic(name, " error received while executing SQL: '", query, "': ", err)
	}
	if res != nil {
		if i, e := res.RowsAffected(); e == nil { // if we have the number of rows affected...
			log.Info(name, " rows affected: ", i)
			rowsAffected = i
		}
	}
	return
}

// safeExec runs query and cancels it if a shutdown request arrives first.
func safeExec(ctx context.Context, db shared.Connector, controlChan chan ControlAction, query string) (res shared.Result, err error, shutdown bool) {
	doneChan := make(chan struct{}, 1)
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	go func() {
		res, err = db.ExecContext(ctx, query)
		doneChan <- struct{}{}
	}()
	select {
	case controlAction := <-controlChan: // if we were shutdown...
		cancelFunc()
		<-doneChan
		controlAction.ResponseChan <- nil
		return nil, nil, true
	case <-doneChan:
	}
	return res, err, false
}

// safeQuery runs query, streaming its rows to h, and cancels it if a shutdown request arrives first.
func safeQuery(ctx context.Context, log logger.Logger, db shared.Connector, controlChan chan ControlAction, query string, h rdbms.SqlResultHandler) (err error, shutdown bool) {
	doneChan := make(chan struct{}, 1)
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	go func() {
		err = rdbms.SqlQuery(ctx, log, db, query, h)
		doneChan <- struct{}{}
	}()
	select {
	case controlAction := <-controlChan: // if we were shutdown...
		cancelFunc()
		<-doneChan
		controlAction.ResponseChan <- nil
		return nil, true
	case <-doneChan:
	}
	return err, false
}

func isCopyInto(stmt string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(stmt)), "copy into")
}

// copyIntoResult totals the rows_loaded and errors_seen columns of a Snowflake COPY INTO result.
// A COPY that finds no new files returns only a status column, so both totals stay zero.
type copyIntoResult struct {
	idxLoaded  int
	idxErrors  int
	rowsLoaded int64
	errorsSeen int64
}

func (r *copyIntoResult) HandleHeader(cols []string) error {
	r.idxLoaded, r.idxErrors = -1, -1
	for idx, col := range cols {
		switch strings.ToLower(col) {
		case "rows_loaded":
			r.idxLoaded = idx
		case "errors_seen":
			r.idxErrors = idx
		}
	}
	return nil
}

func (r *copyIntoResult) HandleRow(row []interface{}) error {
	add := func(total *int64, idx int) error {
		if idx < 0 || row[idx] == nil {
			return nil
		}
		n, err := toInt64(row[idx])
		if err != nil {
			return err
		}
		*total += n
		return nil
	}
	if err := add(&r.rowsLoaded, r.idxLoaded); err != nil {
		return err
	}
	return add(&r.errorsSeen, r.idxErrors)
}

// toInt64 converts a numeric column value, which drivers may return as an integer, float, string or bytes.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	}
	return 0, fmt.Errorf("unexpected type %T for a row count", v)
}

// GetSqlSliceSnowflakeCopyInto generates SQL to copy data from the supplied Snowflake STAGE/fileName into
// the given table, optionally emptying the table first.
// The header line is skipped and rows that fail to parse are dropped.
// force = true reloads a file whose contents are unchanged since an earlier COPY, as the table may have been emptied since.
func GetSqlSliceSnowflakeCopyInto(schemaTableName rdbms.SchemaTable, stageName string, fileName string, truncate bool) []string {
	retval := make([]string, 0, 2)
	if truncate {
		retval = append(retval, fmt.Sprintf("truncate table %v", schemaTableName.SchemaTable))
	}
	return append(retval, fmt.Sprintf(
		`copy into %v from '@%v/%v' file_format = (type = 'CSV' field_optionally_enclosed_by = '"' skip_header = 1) on_error = 'CONTINUE' force = true`,
		schemaTableName.SchemaTable, stageName, fileName))
}
