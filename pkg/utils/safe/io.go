package safe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/secmon-lab/argus/pkg/utils/logging"
)

// Close closes closer and logs a failure instead of returning it. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close",
			slog.String("type", fmt.Sprintf("%T", closer)),
			slog.Any("error", err),
		)
	}
}

// Write writes data to w and logs a failure. Used once the response status is committed.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write", slog.Any("error", err))
	}
}
