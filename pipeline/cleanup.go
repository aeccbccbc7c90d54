package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/relloyd/xlpipe/logger"
)

// CleanupHandlerFunc waits for a reason to stop the run identified by guid and then calls cancelFunc.
type CleanupHandlerFunc func(ctx context.Context, log logger.Logger, guid string, cancelFunc context.CancelFunc)

// CleanupHandlerDefault handles CTRL-C and SIGTERM by cancelling the run.
// It returns without cancelling when ctx is done first.
func CleanupHandlerDefault(ctx context.Context, log logger.Logger, guid string, cancelFunc context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case x := <-c: // wait for interrupt.
		if isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Println() // add new line char for clean CLI look n feel.
		}
		log.Info("Caught ", x.String())
		log.Info("Shutting down run ", guid, "...")
		cancelFunc()
	case <-ctx.Done():
	}
}
