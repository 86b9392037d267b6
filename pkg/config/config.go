// Package config holds the broker client settings consumed from the
// environment and validates them at startup.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leviousa/leviousa-broker/pkg/broker"
	"github.com/leviousa/leviousa-broker/pkg/token"
)

// Settings is everything the client and its surfaces need. A bad value here
// is a ConfigurationError: fail fast, before any user request arrives.
type Settings struct {
	// ProjectID is the broker project/tenant identifier.
	ProjectID string `validate:"required"`

	// SigningKey is the PEM RSA private key used to mint user credentials.
	// May arrive with literal `\n` escapes; the token issuer normalizes it.
	SigningKey string `validate:"required"`

	// Audience names the broker surface that will accept issued tokens.
	Audience string `validate:"required"`

	BaseURL   string `validate:"omitempty,url"`
	PortalURL string `validate:"omitempty,url"`
	RedisURL  string `validate:"omitempty,uri"`

	// CatalogFile optionally extends the built-in action catalog.
	CatalogFile string

	TokenValidity  time.Duration
	RequestTimeout time.Duration
	MaxAttempts    int `validate:"omitempty,min=1,max=10"`
	SnapshotTTL    time.Duration

	LogLevel string
}

// DefaultAudience derives the audience string the broker partitions trust
// domains by.
func DefaultAudience(projectID string) string {
	return "useparagon.com/" + projectID
}

func (s *Settings) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", broker.ErrConfiguration, err)
	}

	if s.TokenValidity < 0 || s.TokenValidity > token.MaxValidity {
		return fmt.Errorf("%w: token validity must be between 0 and %s", broker.ErrConfiguration, token.MaxValidity)
	}

	if s.RequestTimeout < 0 || s.RequestTimeout > time.Minute {
		return fmt.Errorf("%w: request timeout must be between 0 and 1m", broker.ErrConfiguration)
	}

	if s.SnapshotTTL < 0 {
		return fmt.Errorf("%w: snapshot ttl must not be negative", broker.ErrConfiguration)
	}

	return nil
}
