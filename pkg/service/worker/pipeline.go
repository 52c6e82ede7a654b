package worker

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

// TickRunner runs one pipeline tick
type TickRunner interface {
	RunTick(ctx context.Context) (*model.TickResult, error)
}

// PipelineWorker drives the document pipeline on a fixed interval.
//
// Ticks run inline in the loop goroutine, so they never overlap; ticks missed while one
// is running are dropped by the ticker. Single instance only: there is no distributed
// locking between processes.
type PipelineWorker struct {
	runner     TickRunner
	interval   time.Duration
	backoffMax time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	cancel   context.CancelFunc
}

// PipelineOption is a functional option for PipelineWorker
type PipelineOption func(*PipelineWorker)

// WithBackoffMax enables idle backoff: after a tick that made no progress the wait
// doubles, up to max. Zero keeps the fixed interval.
func WithBackoffMax(max time.Duration) PipelineOption {
	return func(w *PipelineWorker) {
		w.backoffMax = max
	}
}

// NewPipelineWorker creates a worker running runner every interval
func NewPipelineWorker(runner TickRunner, interval time.Duration, opts ...PipelineOption) *PipelineWorker {
	w := &PipelineWorker{
		runner:   runner,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background loop. The first tick runs immediately.
func (w *PipelineWorker) Start(ctx context.Context) error {
	logging.Default().Info("Pipeline worker starting",
		"interval", w.interval.String(),
		"backoff_max", w.backoffMax.String())

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop, abandons an in-flight tick and waits for the loop
func (w *PipelineWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Pipeline worker stopping")
		close(w.stopCh)
		if w.cancel != nil {
			w.cancel()
		}
		<-w.doneCh
		logging.Default().Info("Pipeline worker stopped")
	})
}

func (w *PipelineWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	wait := w.interval
	ticker := time.NewTicker(wait)
	defer ticker.Stop()

	next := w.tick(ctx, wait)
	if next != wait {
		wait = next
		ticker.Reset(wait)
	}

	for {
		select {
		case <-ticker.C:
			next := w.tick(ctx, wait)
			if next != wait {
				wait = next
				ticker.Reset(wait)
			}

		case <-w.stopCh:
			logging.Default().Info("Pipeline worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Pipeline worker context cancelled")
			return
		}
	}
}

// tick runs one tick and returns the wait before the next one
func (w *PipelineWorker) tick(ctx context.Context, current time.Duration) time.Duration {
	result, err := w.runner.RunTick(ctx)
	if err != nil {
		_ = errutil.Handle(ctx, err, "pipeline tick failed (will retry next interval)")
	}
	return w.nextWait(current, result, err)
}

func (w *PipelineWorker) nextWait(current time.Duration, result *model.TickResult, err error) time.Duration {
	if w.backoffMax <= 0 {
		return w.interval
	}
	if err == nil && !result.Idle() {
		return w.interval
	}

	next := current * 2
	if next > w.backoffMax {
		next = w.backoffMax
	}
	if next < w.interval {
		next = w.interval
	}
	return next
}
