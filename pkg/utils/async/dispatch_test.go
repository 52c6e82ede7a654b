package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/utils/async"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

func TestDispatcher(t *testing.T) {
	var d async.Dispatcher
	var calls atomic.Int32

	ctx := logging.WithCorrelationID(context.Background(), "corr-1")

	d.Dispatch(ctx, "ok", func(ctx context.Context) error {
		if logging.CorrelationID(ctx) == "corr-1" {
			calls.Add(1)
		}
		return nil
	})
	d.Dispatch(ctx, "fails", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	d.Dispatch(ctx, "panics", func(ctx context.Context) error {
		calls.Add(1)
		panic("unexpected")
	})

	d.Wait()
	gt.Value(t, calls.Load()).Equal(int32(3))
}
