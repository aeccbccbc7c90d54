package components

import (
	c "github.com/relloyd/xlpipe/constants"
	f "github.com/relloyd/xlpipe/file"
	"github.com/relloyd/xlpipe/logger"
	s "github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

type CsvFileWriterConfig struct {
	Log                      logger.Logger
	Name                     string
	InputChan                chan stream.Record // the input channel of rows to write to an output CSV file.
	OutputDir                string             // set to empty string to use a system generated sub directory in OS temp space.
	FileNamePrefix           string
	FileNameExtension        string
	HeaderFields             []string // the slice of key names to be found in InputChan that will be used as the CSV header.
	OutputChanField4FilePath string   // the field on outputChan that will contain the file name.
	StepWatcher              *s.StepWatcher
	WaitCounter              ComponentWaiter
	PanicHandlerFn           PanicHandlerFunc
}

// NewCsvFileWriter will dump cfg.InputChan to the CSV file <OutputDir>/<FileNamePrefix>.<FileNameExtension>.
// The CSV header must be specified for this func to pull out the map keys from the input chan
// in the correct order.
// outputChan gets one row holding the file name once all input is written.
// A header-only file is produced when there is no input.
func NewCsvFileWriter(i interface{}) (outputChan chan stream.Record, controlChan chan ControlAction) {
	cfg := i.(*CsvFileWriterConfig)
	if cfg.PanicHandlerFn != nil {
		defer cfg.PanicHandlerFn()
	}
	if cfg.InputChan == nil {
		cfg.Log.Panic(cfg.Name, " error - missing input channel.")
	}
	if len(cfg.HeaderFields) == 0 {
		cfg.Log.Panic(cfg.Name, " error - missing CSV header fields.")
	}
	if cfg.OutputChanField4FilePath == "" {
		cfg.OutputChanField4FilePath = Defaults.ChanField4CSVFileName
	}
	if cfg.FileNameExtension == "" {
		cfg.FileNameExtension = c.CsvFileExtension
	}
	outputChan = make(chan stream.Record, c.ChanSize)
	controlChan = make(chan ControlAction, 1)
	go func() {
		if cfg.PanicHandlerFn != nil {
			defer cfg.PanicHandlerFn()
		}
		defer startComponent(cfg.WaitCounter)()
		cfg.Log.Info(cfg.Name, " is running")
		fi := f.NewCSVFileOutput(cfg.Log, cfg.OutputDir, cfg.FileNamePrefix, cfg.FileNameExtension)
		defer fi.Cleanup()
		fi.SetHeader(cfg.HeaderFields)
		addRows, stop := startWatching(cfg.StepWatcher)
		defer stop()
		var controlAction ControlAction
		for { // for each row of input...
			select {
			case rec, ok := <-cfg.InputChan:
				if !ok { // if the input channel was closed...
					cfg.InputChan = nil // disable this case.
				} else {
					addRows(1)
					fi.MustWriteToCSV(rec.GetDataKeysAsSlice(cfg.Log, cfg.HeaderFields))
				}
			case controlAction = <-controlChan:
				controlChan = nil
			}
			if controlChan == nil || cfg.InputChan == nil { // if we should quit due to a shutdown request or the end of input...
				break
			}
		}
		if controlAction.Action == Shutdown { // if we were asked to shutdown...
			controlAction.ResponseChan <- nil
			cfg.Log.Info(cfg.Name, " shutdown")
			return
		}
		fi.MustOpen() // no-op unless there were no rows.
		fi.Cleanup()
		row := stream.NewRecord()
		row.SetData(cfg.OutputChanField4FilePath, fi.FileName())
		cfg.Log.Debug(cfg.Name, " producing filename as a row onto the output channel: ", fi.FileName())
		if !safeSend(row, outputChan, controlChan, sendNilControlResponse) {
			cfg.Log.Info(cfg.Name, " shutdown")
			return
		}
		cfg.Log.Info(cfg.Name, " wrote ", fi.GetTotalRowCount(), " rows")
		close(outputChan)
		cfg.Log.Info(cfg.Name, " complete")
	}()
	return
}
