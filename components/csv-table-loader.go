package components

import (
	"context"
	"io"
	"path/filepath"

	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/file"
	h "github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

type CsvTableLoaderConfig struct {
	Log                     logger.Logger
	Name                    string
	InputChan               chan stream.Record
	Db                      shared.Connector
	InputChanField4FileName string   // the field name found on InputChan that contains the staged file name to load.
	StageDirectory          string   // the directory holding staged files.
	TargetTable             string   // the relation to load into.
	TargetColumns           []string // the table columns, in CSV column order.
	Truncate                bool     // set to true to delete all rows before each file is loaded.
	TxtBatchNumRows         int
	Ctx                     context.Context
	StepWatcher             *stats.StepWatcher
	WaitCounter             ComponentWaiter
	PanicHandlerFn          PanicHandlerFunc
}

// NewCsvTableLoader bulk inserts staged CSV files into cfg.TargetTable using multi-row INSERTs.
// The delete and all inserts for a file run in a single transaction.
// CSV columns are matched to table columns by header name.
// Rows whose field count does not match the table are skipped and counted.
func NewCsvTableLoader(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*CsvTableLoaderConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	if cfg.Db == nil {
		cfg.Log.Panic(cfg.Name, " error - missing database connection.")
	}
	if len(cfg.TargetColumns) == 0 {
		cfg.Log.Panic(cfg.Name, " error - missing target columns.")
	}
	if cfg.InputChanField4FileName == "" {
		cfg.InputChanField4FileName = Defaults.ChanField4StagedName
	}
	if cfg.TxtBatchNumRows <= 0 {
		cfg.TxtBatchNumRows = c.TxtBatchNumRowsDefault
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
				fileName := filepath.Join(cfg.StageDirectory, rec.GetDataAsString(cfg.Log, cfg.InputChanField4FileName))
				cfg.Log.Info(cfg.Name, " loading into table '", cfg.TargetTable, "' from file '", fileName, "'")
				loaded, rejected := loadCsvFile(cfg, fileName, addRows)
				cfg.Log.Info(cfg.Name, " rows loaded: ", loaded, "; rows rejected: ", rejected)
				rec.SetData(Defaults.ChanField4RowsLoaded, loaded)
				rec.SetData(Defaults.ChanField4RowsRejected, rejected)
				rec.SetData(Defaults.ChanField4TableName, cfg.TargetTable)
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
	return
}

func loadCsvFile(cfg *CsvTableLoaderConfig, fileName string, addRows func(int64)) (loaded int64, rejected int64) {
	in, err := file.OpenCSVFileInput(fileName)
	if err != nil {
		cfg.Log.Panic(cfg.Name, " error - ", err)
	}
	defer in.Close()
	if len(in.Header) != len(cfg.TargetColumns) {
		cfg.Log.Panic(cfg.Name, " error - file ", fileName, " has ", len(in.Header), " columns but table ", cfg.TargetTable, " has ", len(cfg.TargetColumns))
	}
	cols := h.StringSliceToOrderedMap(cfg.TargetColumns)
	for _, col := range in.Header {
		if _, ok := cols.Get(col); !ok {
			cfg.Log.Panic(cfg.Name, " error - file ", fileName, " has column ", col, " that is not in table ", cfg.TargetTable)
		}
	}
	tx, err := cfg.Db.BeginTx(cfg.Ctx)
	if err != nil {
		cfg.Log.Panic(cfg.Name, " error starting transaction: ", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				cfg.Log.Error(cfg.Name, " error during rollback: ", err)
			}
		}
	}()
	if cfg.Truncate {
		q := "delete from " + cfg.TargetTable
		res, err := tx.ExecContext(cfg.Ctx, q)
		assertExec(cfg.Log, cfg.Name, q, res, err)
	}
	batch := cfg.Db.GetDmlGenerator().NewInsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:         cfg.Log,
		OutputTable: cfg.TargetTable,
		TargetCols:  cols,
	}).(shared.SqlStmtTxtBatcher)
	execBatch := func() {
		if batch.GetRowCount() == 0 {
			return
		}
		q := batch.GetStatement()
		if _, err := tx.ExecContext(cfg.Ctx, q, batch.GetValues()...); err != nil {
			cfg.Log.Panic(cfg.Name, " error received while executing SQL: '", q, "': ", err)
		}
		loaded += int64(batch.GetRowCount())
		addRows(int64(batch.GetRowCount()))
	}
	batch.InitBatch(cfg.TxtBatchNumRows)
	for {
		row, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			cfg.Log.Panic(cfg.Name, " error reading file ", fileName, ": ", err)
		}
		if len(row) != len(cfg.TargetColumns) { // if the row can't be parsed into the table...
			rejected++
			cfg.Log.Debug(cfg.Name, " skipping row with ", len(row), " fields")
			continue
		}
		full, err := batch.AddValuesToBatch(stream.NewRecordFromSlice(in.Header, row).GetDataByColumnMap(cfg.Log, cols))
		if err != nil {
			cfg.Log.Panic(cfg.Name, " error - ", err)
		}
		if full {
			execBatch()
			batch.InitBatch(cfg.TxtBatchNumRows)
		}
	}
	execBatch()
	if err = tx.Commit(); err != nil {
		cfg.Log.Panic(cfg.Name, " error during commit: ", err)
	}
	committed = true
	return
}
