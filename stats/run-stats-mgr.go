package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/xlpipe/logger"
)

// StatsManager hands out StepWatchers and periodically logs their stats.
type StatsManager interface {
	StatsFetcher
	AddStepWatcher(stepName string) *StepWatcher
	StartDumping()
	StopDumping()
}

type StatsFetcher interface {
	GetStats() []Stats
}

var DefaultStatsDumpFrequencySeconds = 5

// RunStatsManager saves stats from each step added via calls to AddStepWatcher.
// Steps are reported in the order they were added.
type RunStatsManager struct {
	ticker              *time.Ticker
	tickerDone          chan struct{}
	tickerIsRunningFlag int32
	tickerFrequency     int
	mu                  sync.Mutex
	log                 logger.Logger
	mapStepStats        *ordered_map.OrderedMap // step name => *StepWatcher
}

// SetStatsDumpFrequency returns an option for NewRunStats().
// Zero disables periodic dumping.
func SetStatsDumpFrequency(seconds int) func(t *RunStatsManager) {
	return func(t *RunStatsManager) {
		t.tickerFrequency = seconds
	}
}

func NewRunStats(log logger.Logger, options ...func(t *RunStatsManager)) *RunStatsManager {
	t := &RunStatsManager{log: log, tickerFrequency: DefaultStatsDumpFrequencySeconds}
	for _, option := range options {
		option(t)
	}
	t.tickerDone = make(chan struct{})
	t.mapStepStats = ordered_map.NewOrderedMap()
	return t
}

// AddStepWatcher creates a StepWatcher for stepName, replacing any earlier one of the same name.
func (t *RunStatsManager) AddStepWatcher(stepName string) *StepWatcher {
	sw := NewStepWatcher(t.log, stepName)
	t.mu.Lock()
	t.mapStepStats.Set(stepName, sw)
	t.mu.Unlock()
	return sw
}

func (t *RunStatsManager) StartDumping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if atomic.LoadInt32(&t.tickerIsRunningFlag) != 0 {
		t.log.Debug("stats dumper ticker already running")
		return
	}
	if t.tickerFrequency <= 0 {
		t.log.Debug("stats dumper disabled")
		return
	}
	t.ticker = time.NewTicker(time.Second * time.Duration(t.tickerFrequency))
	atomic.StoreInt32(&t.tickerIsRunningFlag, 1)
	go func() {
		t.log.Debug("stats dumper ticker started")
		for {
			select {
			case <-t.tickerDone:
				t.log.Debug("stats dumper ticker stopped")
				return
			case <-t.ticker.C:
				t.logStats()
			}
		}
	}()
}

// StopDumping will stop the ticker and dump the current stats,
// only if the ticker was already running via a call to StartDumping().
func (t *RunStatsManager) StopDumping() {
	t.mu.Lock()
	running := atomic.LoadInt32(&t.tickerIsRunningFlag) > 0
	if running {
		atomic.StoreInt32(&t.tickerIsRunningFlag, 0)
		t.ticker.Stop()
	}
	t.mu.Unlock()
	if running {
		t.tickerDone <- struct{}{} // cause the goroutine to exit (we can't close ticker.C)
		t.logStats()
	}
}

func (t *RunStatsManager) logStats() {
	for _, s := range t.GetStats() {
		t.log.Info(s.String())
	}
}

// GetStats implements interface StatsFetcher{}.
func (t *RunStatsManager) GetStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	statsList := make([]Stats, 0, t.mapStepStats.Len())
	iter := t.mapStepStats.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		statsList = append(statsList, kv.Value.(*StepWatcher).RenderStats())
	}
	return statsList
}
