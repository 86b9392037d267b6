// Package client implements the user-scoped broker client: it mints a fresh
// credential per call, submits the action over the broker's HTTP surface and
// resolves every call to exactly one ActionResult variant.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leviousa/leviousa-broker/pkg/broker"
	"github.com/leviousa/leviousa-broker/pkg/catalog"
	"github.com/leviousa/leviousa-broker/pkg/connections"
	"github.com/leviousa/leviousa-broker/pkg/eventbus"
	"github.com/leviousa/leviousa-broker/pkg/events"
	"github.com/leviousa/leviousa-broker/pkg/otelhelper"
	"github.com/leviousa/leviousa-broker/pkg/token"
)

// DefaultBaseURL is the broker's action/proxy API host.
const DefaultBaseURL = "https://actions.useparagon.com"

// Client invokes broker actions on behalf of end users. Safe for concurrent
// use: the issuer and catalog are read-only after construction and the
// invoker holds no cross-call state.
type Client struct {
	issuer    *token.Issuer
	catalog   *catalog.Catalog
	invoker   *invoker
	projectID string
	portalURL string
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	cache     *connections.Cache
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.invoker.baseURL = baseURL
		}
	}
}

func WithPortalURL(portalURL string) Option {
	return func(c *Client) {
		if portalURL != "" {
			c.portalURL = portalURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.invoker.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.invoker.httpClient.Timeout = timeout
		}
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.invoker.maxAttempts = attempts
		}
	}
}

func WithBackoff(backoff time.Duration) Option {
	return func(c *Client) {
		if backoff >= 0 {
			c.invoker.backoff = backoff
		}
	}
}

// WithEventPublisher publishes invocation lifecycle events to the bus.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(c *Client) {
		c.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithConnectionsCache invalidates the user's cached connection snapshot
// whenever the broker reports a missing grant.
func WithConnectionsCache(cache *connections.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(issuer *token.Issuer, cat *catalog.Catalog, projectID string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if issuer == nil {
		return nil, fmt.Errorf("%w: token issuer is required", broker.ErrConfiguration)
	}

	if cat == nil {
		return nil, fmt.Errorf("%w: action catalog is required", broker.ErrConfiguration)
	}

	if projectID == "" {
		return nil, fmt.Errorf("%w: broker project id is required", broker.ErrConfiguration)
	}

	clientLogger := logger.With("module", "broker_client")

	c := &Client{
		issuer:    issuer,
		catalog:   cat,
		projectID: projectID,
		portalURL: broker.DefaultConnectPortalURL,
		logger:    clientLogger,
		now:       time.Now,
		invoker: &invoker{
			httpClient:  &http.Client{Timeout: defaultTimeout},
			baseURL:     DefaultBaseURL,
			projectID:   projectID,
			maxAttempts: defaultMaxAttempts,
			backoff:     defaultBackoff,
			logger:      clientLogger,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// InvokeAction executes one broker action for a user and resolves to exactly
// one ActionResult variant. The returned error is non-nil only for pre-flight
// problems (bad request, unknown action, signing failure); broker outcomes,
// including exhausted retries, land in the result.
func (c *Client) InvokeAction(ctx context.Context, userID, integration, action string, parameters map[string]any) (*broker.ActionResult, error) {
	req := broker.ActionRequest{
		Integration: integration,
		Action:      action,
		Parameters:  parameters,
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	desc, err := c.catalog.Resolve(integration, action)
	if err != nil {
		return nil, err
	}

	if err := desc.ValidateParameters(parameters); err != nil {
		return nil, err
	}

	credential, err := c.issuer.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue user credential: %w", err)
	}

	invocationID := uuid.NewString()
	startedAt := c.now()

	ctx, span := c.startSpan(ctx, invocationID, userID, req)
	defer span.End()

	c.publish(ctx, invocationID, events.InvocationStarted{
		BaseEvent: c.baseEvent(invocationID, events.InvocationStartedEvent, userID, req),
	})

	c.logger.InfoContext(ctx, "Invoking broker action",
		"invocation_id", invocationID,
		"user_id", userID,
		"integration", integration,
		"action", action,
	)

	result := c.executeAndNormalize(ctx, desc, req, credential, userID)

	span.SetAttributes(attribute.String(otelhelper.ResultStatusKey, string(result.Status)))

	switch result.Status {
	case broker.StatusAuthRequired:
		c.onAuthenticationRequired(ctx, invocationID, userID, req, result)

	case broker.StatusFailure:
		otelhelper.SetError(span, fmt.Errorf("%s: %s", result.ErrorKind, result.Message))
		c.publish(ctx, invocationID, events.InvocationFailed{
			BaseEvent:     c.baseEvent(invocationID, events.InvocationFailedEvent, userID, req),
			ErrorKind:     result.ErrorKind,
			Message:       result.Message,
			UnsafeToRetry: result.UnsafeToRetry,
		})

	case broker.StatusSuccess:
		c.publish(ctx, invocationID, events.InvocationCompleted{
			BaseEvent: c.baseEvent(invocationID, events.InvocationCompletedEvent, userID, req),
			Duration:  c.now().Sub(startedAt),
		})
	}

	return result, nil
}

// ReconnectURL builds the connect-portal URL for one user and integration.
func (c *Client) ReconnectURL(userID, integration string) string {
	return broker.ReconnectURL(c.portalURL, c.projectID, integration, userID)
}

func (c *Client) executeAndNormalize(ctx context.Context, desc *catalog.Descriptor, req broker.ActionRequest, credential *token.Credential, userID string) *broker.ActionResult {
	reconnectURL := c.ReconnectURL(userID, req.Integration)

	raw, err := c.invoker.invoke(ctx, desc, req, credential.Signed)
	if err != nil {
		result := broker.Failed(broker.KindOf(err), invocationFailureMessage(req, err))
		result.UnsafeToRetry = errors.Is(err, ErrAmbiguousFailure)

		return result
	}

	return broker.Normalize(raw.StatusCode, raw.Body, reconnectURL)
}

func (c *Client) onAuthenticationRequired(ctx context.Context, invocationID, userID string, req broker.ActionRequest, result *broker.ActionResult) {
	c.logger.InfoContext(ctx, "Broker reported missing authorization",
		"invocation_id", invocationID,
		"user_id", userID,
		"integration", req.Integration,
	)

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, userID); err != nil {
			c.logger.WarnContext(ctx, "Failed to invalidate connection snapshot", "user_id", userID, "error", err)
		}
	}

	c.publish(ctx, invocationID, events.InvocationAuthRequired{
		BaseEvent:    c.baseEvent(invocationID, events.InvocationAuthRequiredEvent, userID, req),
		ReconnectURL: result.ReconnectURL,
	})
}

func (c *Client) baseEvent(invocationID string, eventType events.EventType, userID string, req broker.ActionRequest) events.BaseEvent {
	return events.BaseEvent{
		ID:          invocationID,
		Type:        eventType,
		Timestamp:   c.now(),
		UserID:      userID,
		Integration: req.Integration,
		Action:      req.Action,
	}
}

func (c *Client) publish(ctx context.Context, key string, event eventbus.Event) {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(ctx, key, event); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish invocation event", "event_type", event.GetType(), "error", err)
	}
}

func (c *Client) startSpan(ctx context.Context, invocationID, userID string, req broker.ActionRequest) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, c.tracer, "broker.invoke_action",
		attribute.String(otelhelper.InvocationIDKey, invocationID),
		attribute.String(otelhelper.UserIDKey, userID),
		attribute.String(otelhelper.IntegrationKey, req.Integration),
		attribute.String(otelhelper.ActionKey, req.Action),
	)
}

func invocationFailureMessage(req broker.ActionRequest, err error) string {
	switch {
	case errors.Is(err, ErrAmbiguousFailure):
		return fmt.Sprintf("The %s action on %s may or may not have completed; the broker's response was lost. Do not retry blindly.", req.Action, req.Integration)
	case errors.Is(err, broker.ErrBrokerUnavailable):
		return fmt.Sprintf("The integration service is temporarily unavailable; the %s action on %s was not completed.", req.Action, req.Integration)
	default:
		return err.Error()
	}
}
