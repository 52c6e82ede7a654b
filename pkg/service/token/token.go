// Package token mints and verifies the HS256 bearer credentials principals present.
package token

import (
	"context"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

const (
	DefaultTTL = 60 * time.Minute

	// cached system tokens are replaced this long before they expire
	refreshMargin = time.Minute

	claimRole   = "role"
	claimUserID = "userId"
)

// Service signs and verifies principal tokens with a shared secret
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithTTL sets the lifetime of minted tokens
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service signing with secret
func New(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, goerr.New("token secret is required")
	}

	s := &Service{
		key: secret,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mint issues a signed token for p
func (s *Service) Mint(p *auth.Principal) (string, time.Time, error) {
	if p == nil {
		return "", time.Time{}, goerr.New("principal is required")
	}

	now := s.now()
	exp := now.Add(s.ttl)

	tok, err := jwt.NewBuilder().
		Subject(p.Subject).
		IssuedAt(now).
		Expiration(exp).
		Claim(claimRole, string(p.Role)).
		Claim(claimUserID, string(p.UserID)).
		Build()
	if err != nil {
		return "", time.Time{}, goerr.Wrap(err, "failed to build token", goerr.V("subject", p.Subject))
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", time.Time{}, goerr.Wrap(err, "failed to sign token", goerr.V("subject", p.Subject))
	}

	return string(signed), exp, nil
}

// SystemToken returns the system principal's token, minting a new one only when the
// cached token is about to expire
func (s *Service) SystemToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && s.now().Before(s.expiresAt.Add(-refreshMargin)) {
		return s.cached, nil
	}

	signed, exp, err := s.Mint(auth.System())
	if err != nil {
		return "", err
	}
	s.cached = signed
	s.expiresAt = exp
	return signed, nil
}

// Verify validates raw and returns the principal it carries
func (s *Service) Verify(ctx context.Context, raw string) (*auth.Principal, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
		jwt.WithAcceptableSkew(10*time.Second),
	)
	if err != nil {
		return nil, goerr.Wrap(auth.ErrUnauthenticated, "invalid token", goerr.V("reason", err.Error()))
	}

	roleStr, err := stringClaim(tok, claimRole)
	if err != nil {
		return nil, err
	}
	role, err := types.ParseRole(roleStr)
	if err != nil {
		return nil, goerr.Wrap(auth.ErrUnauthenticated, "invalid role claim", goerr.V("role", roleStr))
	}

	userID, err := stringClaim(tok, claimUserID)
	if err != nil {
		return nil, err
	}

	if tok.Subject() == "" {
		return nil, goerr.Wrap(auth.ErrUnauthenticated, "sub claim not found in token")
	}

	return &auth.Principal{
		Subject: tok.Subject(),
		UserID:  model.UserID(userID),
		Role:    role,
	}, nil
}

func stringClaim(tok jwt.Token, name string) (string, error) {
	v, ok := tok.Get(name)
	if !ok {
		return "", goerr.Wrap(auth.ErrUnauthenticated, "claim not found in token", goerr.V("claim", name))
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", goerr.Wrap(auth.ErrUnauthenticated, "claim is not a string", goerr.V("claim", name))
	}
	return s, nil
}
