package components

import (
	"os"

	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

type FileRemoverConfig struct {
	Log               logger.Logger
	Name              string
	InputChan         chan stream.Record
	FileNameChanField string // name of the field in InputChan that contains the files to delete.
	StepWatcher       *stats.StepWatcher
	WaitCounter       ComponentWaiter
	PanicHandlerFn    PanicHandlerFunc
}

// NewFileRemover deletes the local file named on each input row and passes the row on.
// Failures to delete are logged as warnings only.
func NewFileRemover(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*FileRemoverConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	if cfg.FileNameChanField == "" {
		cfg.FileNameChanField = Defaults.ChanField4CSVFileName
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
				if fileName := rec.GetDataAsString(cfg.Log, cfg.FileNameChanField); fileName != "" {
					if err := os.Remove(fileName); err != nil {
						cfg.Log.Warn(cfg.Name, " unable to remove file: ", err)
					} else {
						cfg.Log.Info(cfg.Name, " removed file '", fileName, "'")
						addRows(1)
					}
				}
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
