package components

import (
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

func safeSend(rec stream.Record,
	outputChan chan stream.Record,
	controlChan chan ControlAction,
	controlFunc func(c ControlAction),
) (recordSentOK bool) {
	select {
	case outputChan <- rec: // if we can send the record to the outputChan...
		return true // signal that data was sent OK.
	case c := <-controlChan: // if we were asked to shutdown...
		controlFunc(c) // handle the control action...
		return false   // signal that the caller should shutdown.
	}
}

func sendNilControlResponse(c ControlAction) {
	c.ResponseChan <- nil // respond that we're done with a nil error.
}

// startWatching starts sw if there is one and returns the func that counts rows for it.
func startWatching(sw *stats.StepWatcher) (addRows func(int64), stop func()) {
	if sw == nil {
		return func(int64) {}, func() {}
	}
	sw.StartWatching()
	return sw.AddRows, sw.StopWatching
}

// startComponent registers with the waiter and returns the func to defer when the goroutine exits.
func startComponent(w ComponentWaiter) func() {
	if w == nil {
		return func() {}
	}
	w.Add()
	return w.Done
}
