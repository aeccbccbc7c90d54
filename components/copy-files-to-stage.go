package components

import (
	"context"
	"os"

	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/stage"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

type CopyFilesToStageConfig struct {
	Log                        logger.Logger
	Name                       string
	InputChan                  chan stream.Record // the input channel of rows containing files (with full paths) to copy to the stage.
	FileNameChanField          string             // name of the field in InputChan that contains the files to copy.
	OutputChanField4StagedName string             // the field added to each output row holding the name within the stage.
	Stager                     stage.Stager
	RemoveInputFile            bool // set to true to delete each local file once it is staged.
	Ctx                        context.Context
	StepWatcher                *stats.StepWatcher
	WaitCounter                ComponentWaiter
	PanicHandlerFn             PanicHandlerFunc
}

// NewCopyFilesToStage puts each input file onto cfg.Stager.
// Input rows are passed to outputChan with the staged file name added.
func NewCopyFilesToStage(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*CopyFilesToStageConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	if cfg.Stager == nil {
		cfg.Log.Panic(cfg.Name, " error - missing stage.")
	}
	if cfg.FileNameChanField == "" {
		cfg.FileNameChanField = Defaults.ChanField4CSVFileName
	}
	if cfg.OutputChanField4StagedName == "" {
		cfg.OutputChanField4StagedName = Defaults.ChanField4StagedName
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
				fileName := rec.GetDataAsString(cfg.Log, cfg.FileNameChanField)
				if fileName == "" {
					cfg.Log.Debug(cfg.Name, " no file found in input channel - skipping.")
					break
				}
				cfg.Log.Info(cfg.Name, " copying file '", fileName, "' to stage ", cfg.Stager.Location())
				stagedName, err := cfg.Stager.Put(cfg.Ctx, fileName)
				if err != nil {
					cfg.Log.Panic(cfg.Name, " error - ", err)
				}
				if cfg.RemoveInputFile {
					if err := os.Remove(fileName); err != nil {
						cfg.Log.Warn(cfg.Name, " unable to remove file: ", err)
					}
				}
				addRows(1)
				rec.SetData(cfg.OutputChanField4StagedName, stagedName)
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
