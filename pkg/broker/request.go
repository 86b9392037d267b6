package broker

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIntegration = errors.New("action request integration is required")
	ErrMissingAction      = errors.New("action request action is required")
)

// ActionRequest describes one broker action to execute on behalf of a user.
// It is immutable once submitted to the invoker.
type ActionRequest struct {
	Integration string         `json:"integration"`
	Action      string         `json:"action"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func (r ActionRequest) Validate() error {
	if r.Integration == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrMissingIntegration)
	}

	if r.Action == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrMissingAction)
	}

	return nil
}
