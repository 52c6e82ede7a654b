package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

func (w *PipelineWorker) NextWait(current time.Duration, result *model.TickResult, err error) time.Duration {
	return w.nextWait(current, result, err)
}

func (w *PipelineWorker) Tick(ctx context.Context, current time.Duration) time.Duration {
	return w.tick(ctx, current)
}
