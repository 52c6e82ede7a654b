package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

const (
	SystemSubject = "system-orchestrator"
	SystemUserID  = model.UserID("system")
)

var (
	// ErrUnauthenticated is returned when an operation is called without a principal
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the principal's role is not allowed
	ErrForbidden = errors.New("forbidden")
)

// Principal is the caller identity passed explicitly into operations
type Principal struct {
	Subject string
	UserID  model.UserID
	Role    types.Role
}

// System returns the privileged principal the pipeline acts as
func System() *Principal {
	return &Principal{
		Subject: SystemSubject,
		UserID:  SystemUserID,
		Role:    types.RoleAdmin,
	}
}

// Require returns nil when p holds one of roles. A nil principal is unauthenticated.
func (p *Principal) Require(roles ...types.Role) error {
	if p == nil {
		return goerr.Wrap(ErrUnauthenticated, "principal is required")
	}
	if len(roles) == 0 || slices.Contains(roles, p.Role) {
		return nil
	}
	return goerr.Wrap(ErrForbidden, "role not allowed",
		goerr.V("subject", p.Subject),
		goerr.V("role", p.Role),
		goerr.V("allowed", roles),
	)
}

// IsAdmin reports whether p has the ADMIN role
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == types.RoleAdmin
}

type ctxPrincipalKey struct{}

// WithPrincipal stores p in ctx. Used only at the transport boundary.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal, or nil
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxPrincipalKey{}).(*Principal)
	return p
}
