package pipeline

import (
	"context"
	"time"

	"github.com/relloyd/xlpipe/components"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

// ShutdownTimeout is how long RunComponents waits for each component to acknowledge a shutdown.
var ShutdownTimeout = 5 * time.Second

// Chain is handed to the func that launches a chain of components.
// It supplies the waiter, step watcher and panic handler each component config needs.
type Chain struct {
	PanicHandlerFn components.PanicHandlerFunc
	gw             *groupWaiter
	sm             stats.StatsManager
}

// Waiter returns the ComponentWaiter for stepName.
func (c *Chain) Waiter(stepName string) components.ComponentWaiter {
	return c.gw.newStepComponentWaiter(stepName)
}

// StepWatcher returns a StepWatcher for stepName, or nil when stats are not collected.
func (c *Chain) StepWatcher(stepName string) *stats.StepWatcher {
	if c.sm == nil {
		return nil
	}
	return c.sm.AddStepWatcher(stepName)
}

// StepStatus returns the status of a step that was given a Waiter.
func (c *Chain) StepStatus(stepName string) (StepStatus, bool) {
	return c.gw.LoadStatus(stepName)
}

// LaunchFunc starts a chain of components and returns the output of the last one
// plus the control channels of every component.
type LaunchFunc func(c *Chain) (output chan stream.Record, controls []chan components.ControlAction)

// RunComponents launches a chain of components and drains its final output.
// A component that fails via Log.Panic() causes the others to be shut down and the error to be returned.
// Cancellation of ctx takes priority over output that is ready, so a cancelled chain never reports success.
func RunComponents(ctx context.Context, log logger.Logger, sm stats.StatsManager, launch LaunchFunc) ([]stream.Record, error) {
	errChan := make(chan error, 1)
	c := &Chain{PanicHandlerFn: NewPanicHandler(errChan), gw: newGroupWaiter(), sm: sm}
	output, controls := launch(c)
	select {
	case err := <-errChan: // if a component failed while it was being set up...
		shutdown(log, controls, false)
		return nil, err
	default:
	}
	records := make([]stream.Record, 0)
	for {
		select {
		case <-ctx.Done(): // if we were cancelled, stop before taking more output...
			shutdown(log, controls, true)
			return nil, ctx.Err()
		default:
		}
		select {
		case rec, ok := <-output:
			if !ok { // if the chain is complete...
				c.gw.Wait()
				select {
				case err := <-errChan: // if a component failed after the last record...
					return nil, err
				default:
				}
				return records, nil
			}
			records = append(records, rec)
		case err := <-errChan:
			shutdown(log, controls, false)
			return nil, err
		case <-ctx.Done():
			shutdown(log, controls, true)
			return nil, ctx.Err()
		}
	}
}

// shutdown asks each component to stop and, if wait is set, waits for their responses.
func shutdown(log logger.Logger, controls []chan components.ControlAction, wait bool) {
	responses := make([]chan error, 0, len(controls))
	for _, cc := range controls {
		if cc == nil {
			continue
		}
		rc := make(chan error, 1)
		select {
		case cc <- components.ControlAction{Action: components.Shutdown, ResponseChan: rc}:
			responses = append(responses, rc)
		default: // the component already has a request queued.
		}
	}
	if !wait {
		return
	}
	timeout := time.After(ShutdownTimeout)
	for _, rc := range responses {
		select {
		case <-rc:
		case <-timeout:
			log.Warn("timed out waiting for components to shutdown")
			return
		}
	}
}
