package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/relloyd/xlpipe/components"
	"github.com/sirupsen/logrus"
)

// NewPanicHandler returns a func for components to defer.
// It recovers a Log.Panic() and sends the message as an error to errChan, once only.
// errChan should be buffered so the first component to fail never blocks.
func NewPanicHandler(errChan chan error) components.PanicHandlerFunc {
	once := sync.Once{}
	return func() {
		if r := recover(); r != nil { // if there was a panic...
			var err error
			switch x := r.(type) {
			case *logrus.Entry:
				err = errors.New(x.Message)
			case error:
				err = x
			case string:
				err = errors.New(x)
			default:
				err = fmt.Errorf("%v", x)
			}
			once.Do(func() { errChan <- err })
		}
	}
}
