package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

// Dispatcher runs best-effort side effects in background goroutines.
// The zero value is ready to use.
type Dispatcher struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine with a fresh background context
// that keeps the caller's logger and correlation ID. Errors and panics are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	bgCtx = logging.With(bgCtx, logging.From(ctx))
	if id := logging.CorrelationID(ctx); id != "" {
		bgCtx = logging.WithCorrelationID(bgCtx, id)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, goerr.New("panic in async handler", goerr.V("panic", r), goerr.V("task", name)), "async handler panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, goerr.Wrap(err, "async handler failed", goerr.V("task", name)), "async handler failed")
		}
	}()
}

// Wait blocks until every dispatched handler has returned
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
