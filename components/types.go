package components

// PanicHandlerFunc is deferred by each component goroutine to recover a Log.Panic() into an error for the runner.
type PanicHandlerFunc func()

// ComponentWaiter counts running components so a chain can be waited on.
type ComponentWaiter interface {
	Add()
	Done()
}

type Action uint32

const (
	Shutdown Action = iota + 1
)

// ControlAction asks a running component to stop. The component replies on ResponseChan once it has.
type ControlAction struct {
	Action       Action
	ResponseChan chan error
}
