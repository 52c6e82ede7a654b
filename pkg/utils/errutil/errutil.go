package errutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

// Handle logs the error with a message and reports it to Sentry when a client is configured.
// The error is returned unchanged so callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	// Extract goerr values for structured logging
	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	report(ctx, err, msg, ge)

	return err
}

// HandleHTTP logs the error and writes an HTTP error response.
// Client errors (4xx) are logged at warn level and not reported to Sentry.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	hasValues := errors.As(err, &ge)

	switch {
	case statusCode >= 500 && hasValues:
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
		report(ctx, err, "HTTP error", ge)
	case statusCode >= 500:
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
		report(ctx, err, "HTTP error", nil)
	default:
		logger.Warn("HTTP client error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	msg := err.Error()
	if statusCode >= 500 {
		msg = http.StatusText(statusCode)
	}
	http.Error(w, msg, statusCode)
}

func report(ctx context.Context, err error, msg string, ge *goerr.Error) {
	hub := sentry.CurrentHub()
	if hub == nil || hub.Client() == nil {
		return
	}

	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if id := logging.CorrelationID(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		if ge != nil {
			scope.SetContext("values", sentry.Context(ge.Values()))
		}
	})
	hub.CaptureException(err)
}
