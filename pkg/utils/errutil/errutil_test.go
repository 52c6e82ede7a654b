package errutil_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
)

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("nil error stays nil", func(t *testing.T) {
		gt.NoError(t, errutil.Handle(ctx, nil, "nothing"))
	})

	t.Run("error is returned unchanged", func(t *testing.T) {
		base := errors.New("boom")
		err := goerr.Wrap(base, "wrapped", goerr.V("doc_id", "doc-1"))
		got := errutil.Handle(ctx, err, "failed")
		gt.Bool(t, errors.Is(got, base)).True()
	})
}

func TestHandleHTTP(t *testing.T) {
	ctx := context.Background()

	t.Run("client error exposes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		errutil.HandleHTTP(ctx, w, goerr.New("bad input"), http.StatusBadRequest)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, w.Body.String()).Contains("bad input")
	})

	t.Run("server error hides message", func(t *testing.T) {
		w := httptest.NewRecorder()
		errutil.HandleHTTP(ctx, w, goerr.New("db password leaked"), http.StatusInternalServerError)
		gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
		gt.String(t, w.Body.String()).NotContains("password")
	})
}
