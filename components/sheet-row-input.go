package components

import (
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/file"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

type SheetRowInputConfig struct {
	Log            logger.Logger
	Name           string
	Sheet          *file.Sheet // a worksheet already read fully into memory.
	StepWatcher    *stats.StepWatcher
	WaitCounter    ComponentWaiter
	PanicHandlerFn PanicHandlerFunc
}

// NewSheetRowInput produces one record per data row of cfg.Sheet, keyed by the sheet header.
func NewSheetRowInput(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*SheetRowInputConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.Sheet == nil {
		cfg.Log.Panic(cfg.Name, " error - missing sheet.")
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
		for _, row := range cfg.Sheet.Rows { // for each row in the sheet...
			rec := stream.NewRecordFromSlice(cfg.Sheet.Header, row)
			if !safeSend(rec, outputChan, controlChan, sendNilControlResponse) {
				cfg.Log.Info(cfg.Name, " shutdown")
				return
			}
			addRows(1)
		}
		close(outputChan)
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
