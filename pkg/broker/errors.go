package broker

import "errors"

// Kind classifies a failed invocation for callers that branch on the
// error taxonomy rather than on sentinel identity.
type Kind string

const (
	KindConfiguration       Kind = "configuration_error"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidRequest      Kind = "invalid_request"
	KindBrokerUnavailable   Kind = "broker_unavailable"
	KindUnparseableResponse Kind = "unparseable_response"
)

var (
	// ErrConfiguration is returned when the client is constructed or invoked
	// with broken configuration (bad signing key, unknown integration). Fatal,
	// never retried.
	ErrConfiguration = errors.New("broker client configuration error")

	// ErrUnauthorized is returned when the broker rejects the user credential
	// or reports a missing integration grant. Recoverable by the user
	// completing the connect-portal flow.
	ErrUnauthorized = errors.New("broker reported missing authorization")

	// ErrInvalidRequest is returned on non-auth 4xx responses. Caller error,
	// never retried.
	ErrInvalidRequest = errors.New("broker rejected the request")

	// ErrBrokerUnavailable is returned on network failures, timeouts and 5xx
	// responses after the retry budget is exhausted.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrUnparseableResponse is returned when the broker answered with a body
	// this client cannot interpret.
	ErrUnparseableResponse = errors.New("unparseable broker response")
)

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// KindOf maps an error from this package to its taxonomy kind. Unknown errors
// are treated as unparseable so callers always land on exactly one kind.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrBrokerUnavailable):
		return KindBrokerUnavailable
	default:
		return KindUnparseableResponse
	}
}
