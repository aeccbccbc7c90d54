package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/relloyd/xlpipe/constants"
	h "github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/logger"
)

// StepWatcher saves row stats for a single step periodically.
// The step calls StartWatching() once, AddRows() as it works, then StopWatching().
type StepWatcher struct {
	log             logger.Logger
	stepName        string
	rowCount        int64 // incremented by the step being watched.
	mu              sync.Mutex
	startTime       time.Time
	endTime         time.Time
	rowsPerSecDelta int64
	rowsPerSecAvg   int64
	priorRowCount   int64     // allows us to calculate delta rows per sec between ticker timeout.
	priorTime       time.Time // allows us to calculate delta rows per sec between ticker timeout.
	ticker          *time.Ticker
	tickerDone      chan struct{}
	isRunning       h.AtomBool
	hasStarted      h.AtomBool
}

type Stats struct {
	StepName           string `json:"stepName"`
	StatusText         string `json:"statusText"`
	StatusEmoji        string `json:"statusEmoji"`
	ElapsedTimeSec     int    `json:"elapsedTimeSec"`
	TotalRowsProcessed int    `json:"totalRowsProcessed"`
	RowsPerSecondAvg   int    `json:"rowsPerSecondAvg"`
	RowsPerSecondDelta int    `json:"rowsPerSecondDelta"`
}

func NewStepWatcher(log logger.Logger, stepName string) *StepWatcher {
	return &StepWatcher{log: log, stepName: stepName, tickerDone: make(chan struct{})}
}

// StartWatching resets the row count and starts the periodic stats calculation.
func (n *StepWatcher) StartWatching() {
	n.mu.Lock()
	n.startTime = time.Now()
	n.priorTime = n.startTime
	n.endTime = time.Time{}
	n.mu.Unlock()
	atomic.StoreInt64(&n.rowCount, 0)
	atomic.StoreInt64(&n.priorRowCount, 0)
	n.isRunning.Set(true)
	n.hasStarted.Set(true)
	n.CalculateStats()
	n.ticker = time.NewTicker(time.Second * c.StatsCaptureFrequencySeconds)
	go func() {
		for {
			select {
			case <-n.ticker.C:
				n.CalculateStats()
			case <-n.tickerDone:
				return
			}
		}
	}()
}

// AddRows records that the step processed another delta rows.
func (n *StepWatcher) AddRows(delta int64) {
	atomic.AddInt64(&n.rowCount, delta)
}

// StopWatching is safe to call when StartWatching was never called.
func (n *StepWatcher) StopWatching() {
	if !n.isRunning.Get() {
		return
	}
	n.ticker.Stop()
	n.tickerDone <- struct{}{} // stop the goroutine that calculates stats.
	n.CalculateStats()         // force final stats calculation.
	n.mu.Lock()
	n.endTime = time.Now()
	n.mu.Unlock()
	n.isRunning.Set(false)
}

func (n *StepWatcher) CalculateStats() {
	n.mu.Lock()
	defer n.mu.Unlock()
	deltaTime := int64(time.Since(n.priorTime).Seconds())
	if deltaTime < 1 { // if we will cause divide by 0 error...
		deltaTime = 1
	}
	rowCount := atomic.LoadInt64(&n.rowCount)
	deltaRowCount := rowCount - atomic.LoadInt64(&n.priorRowCount)
	atomic.StoreInt64(&n.rowsPerSecDelta, deltaRowCount/deltaTime)
	n.log.Debug("STATS: ", n.stepName, " processing ", deltaRowCount/deltaTime, " rows per sec")
	atomic.StoreInt64(&n.priorRowCount, rowCount)
	n.priorTime = time.Now()
	atomic.StoreInt64(&n.rowsPerSecAvg, rowCount/getNumSecondsSinceTimeOrOne(n.startTime))
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	var statusText, statusEmoji string
	switch {
	case n.isRunning.Get():
		statusText = "running"
		statusEmoji = "\U0000231B" // hour glass
	case n.hasStarted.Get():
		statusText = "complete"
		statusEmoji = "\U00002705" // green tick
	default:
		statusText = "waiting"
		statusEmoji = "\U000023F8" // pause
	}
	n.mu.Lock()
	var elapsed time.Duration
	if !n.startTime.IsZero() {
		if n.endTime.IsZero() {
			elapsed = time.Since(n.startTime)
		} else {
			elapsed = n.endTime.Sub(n.startTime)
		}
	}
	n.mu.Unlock()
	return Stats{
		StepName:           n.stepName,
		StatusText:         statusText,
		StatusEmoji:        statusEmoji,
		ElapsedTimeSec:     int(elapsed.Seconds()),
		TotalRowsProcessed: int(atomic.LoadInt64(&n.rowCount)),
		RowsPerSecondAvg:   int(atomic.LoadInt64(&n.rowsPerSecAvg)),
		RowsPerSecondDelta: int(atomic.LoadInt64(&n.rowsPerSecDelta)),
	}
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v %v "+
			"elapsedTimeSec=%v "+
			"totalRowsProcessed=%v "+
			"rowsPerSecondAvg=%v "+
			"rowsPerSecondDelta=%v",
		s.StepName, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeSec,
		s.TotalRowsProcessed,
		s.RowsPerSecondAvg,
		s.RowsPerSecondDelta,
	)
}

func getNumSecondsSinceTimeOrOne(t time.Time) (seconds int64) {
	seconds = int64(time.Since(t).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return
}
