package components

import (
	"context"
	"fmt"

	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	s "github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

type SqlExecConfig struct {
	Log                      logger.Logger
	Name                     string
	InputChan                chan stream.Record
	SqlQueryFieldName        string // the field on InputChan holding the statement to run.
	SqlRowsAffectedFieldName string // optional field to add holding the rows affected, where the driver reports it.
	OutputDb                 shared.Connector
	Ctx                      context.Context
	StepWatcher              *s.StepWatcher
	WaitCounter              ComponentWaiter
	PanicHandlerFn           PanicHandlerFunc
}

// NewSqlExec executes the statement found on each input row, in order, and passes the row on.
// A failed statement stops the component via Log.Panic.
func NewSqlExec(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*SqlExecConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	if cfg.OutputDb == nil {
		cfg.Log.Panic(cfg.Name, " error - missing database connection.")
	}
	if cfg.SqlQueryFieldName == "" {
		cfg.Log.Panic(cfg.Name, " error - missing SQL query field name.")
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
			case rec, ok := <-cfg.InputChan: // per input row SQL exec...
				if !ok { // if we have run out of rows...
					cfg.InputChan = nil // disable this case
					break
				}
				stmt := rec.GetDataAsString(cfg.Log, cfg.SqlQueryFieldName)
				cfg.Log.Info(cfg.Name, " executing: ", stmt)
				res, err, shutdown := safeExec(cfg.Ctx, cfg.OutputDb, controlChan, stmt)
				if shutdown {
					cfg.Log.Info(cfg.Name, " shutdown")
					return
				}
				if err != nil {
					cfg.Log.Panic(fmt.Sprintf("error executing SQL '%v': %v", stmt, err))
				}
				if cfg.SqlRowsAffectedFieldName != "" { // if the caller wants the number of rows affected...
					var n int64
					if res != nil {
						n, _ = res.RowsAffected() // DDL may not report a count.
					}
					rec.SetData(cfg.SqlRowsAffectedFieldName, n)
				}
				if !safeSend(rec, outputChan, controlChan, sendNilControlResponse) { // if we couldn't output the row due to shutdown...
					cfg.Log.Info(cfg.Name, " shutdown")
					return
				}
				addRows(1)
			case controlAction := <-controlChan: // if we have been asked to shutdown...
				controlAction.ResponseChan <- nil
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			if cfg.InputChan == nil { // if we should exit gracefully...
				break
			}
		}
		close(outputChan)
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return outputChan, controlChan
}
