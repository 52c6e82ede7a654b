package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

func TestFromFallsBackToDefault(t *testing.T) {
	gt.Value(t, logging.From(context.Background())).Equal(logging.Default())
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.With(context.Background(), logger)
	ctx = logging.WithCorrelationID(ctx, "corr-1234")

	gt.String(t, logging.CorrelationID(ctx)).Equal("corr-1234")

	logging.From(ctx).Info("hello")
	gt.String(t, buf.String()).Contains(`"correlation_id":"corr-1234"`)
}

func TestCorrelationIDEmpty(t *testing.T) {
	gt.String(t, logging.CorrelationID(context.Background())).Equal("")
}
