package http

import (
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

// authMiddleware resolves the bearer credential into a principal and stores it in the
// request context. Requests without a verifier configured are rejected.
func authMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(auth.ErrUnauthenticated, "authentication is not configured"), http.StatusUnauthorized)
				return
			}

			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(auth.ErrUnauthenticated, "bearer token required"), http.StatusUnauthorized)
				return
			}

			p, err := verifier.Verify(r.Context(), strings.TrimSpace(raw))
			if err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid bearer token"), http.StatusUnauthorized)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = logging.With(ctx, logging.From(ctx).With("subject", p.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
