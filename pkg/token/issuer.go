// Package token issues the short-lived signed credentials that identify a
// Leviousa user to the integration broker.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leviousa/leviousa-broker/pkg/broker"
)

// MaxValidity caps credential lifetime. The broker rejects longer-lived
// tokens, and a leaked token should age out quickly anyway.
const MaxValidity = 24 * time.Hour

const defaultValidity = time.Hour

var ErrEmptyUserID = errors.New("user id is required")

// Issuer signs per-call user credentials with a process-wide RSA key. It is
// stateless after construction and safe for concurrent use.
type Issuer struct {
	key      *rsa.PrivateKey
	audience string
	validity time.Duration
	now      func() time.Time
}

// Credential is one signed, time-bounded assertion of a user's identity.
// It is minted fresh per outbound call and never persisted.
type Credential struct {
	UserID    string
	Signed    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Option func(*Issuer)

// WithValidity overrides the default 1h credential lifetime. Values above
// MaxValidity are clamped.
func WithValidity(d time.Duration) Option {
	return func(i *Issuer) {
		if d > MaxValidity {
			d = MaxValidity
		}

		if d > 0 {
			i.validity = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer parses and validates the PEM signing key up front. Keys arriving
// through environment variables often carry literal `\n` sequences instead of
// newlines; those are normalized before parsing. A key that does not parse as
// an RSA private key fails here rather than producing invalid signatures at
// call time.
func NewIssuer(signingKeyPEM, audience string, opts ...Option) (*Issuer, error) {
	if strings.TrimSpace(signingKeyPEM) == "" {
		return nil, fmt.Errorf("%w: signing key is empty", broker.ErrConfiguration)
	}

	if audience == "" {
		return nil, fmt.Errorf("%w: token audience is empty", broker.ErrConfiguration)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(NormalizePEM(signingKeyPEM)))
	if err != nil {
		return nil, fmt.Errorf("%w: signing key is not a valid RSA private key: %w", broker.ErrConfiguration, err)
	}

	issuer := &Issuer{
		key:      key,
		audience: audience,
		validity: defaultValidity,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(issuer)
	}

	return issuer, nil
}

// Issue mints a credential asserting userID to the configured audience.
// Pure function of (userID, key, audience, clock); no side effects.
func (i *Issuer) Issue(userID string) (*Credential, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.validity)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{i.audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign user credential: %w", err)
	}

	return &Credential{
		UserID:    userID,
		Signed:    signed,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// NormalizePEM converts literal `\n` escapes into real newlines and strips
// surrounding quotes that copy-pasted env values tend to pick up.
func NormalizePEM(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.Trim(normalized, `"'`)
	normalized = strings.ReplaceAll(normalized, `\n`, "\n")

	return normalized
}
