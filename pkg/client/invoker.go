package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/leviousa/leviousa-broker/pkg/broker"
	"github.com/leviousa/leviousa-broker/pkg/catalog"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = time.Second
	maxRetryAfterWait  = 30 * time.Second
)

// ErrAmbiguousFailure marks a transport failure where the request may have
// reached the broker but the response was lost. For non-idempotent actions
// a blind retry could execute the external action twice.
var ErrAmbiguousFailure = errors.New("request outcome is ambiguous")

type rawResponse struct {
	StatusCode int
	Body       []byte
}

// invoker submits one ActionRequest over the broker's HTTP surface. It holds
// no cross-call state; concurrent invocations share only the http.Client.
type invoker struct {
	httpClient  *http.Client
	baseURL     string
	projectID   string
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

func (inv *invoker) invoke(ctx context.Context, desc *catalog.Descriptor, req broker.ActionRequest, credential string) (*rawResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= inv.maxAttempts; attempt++ {
		if attempt > 1 {
			inv.logger.InfoContext(ctx, "Retrying broker request",
				"integration", req.Integration,
				"action", req.Action,
				"attempt", attempt,
				"max_attempts", inv.maxAttempts,
			)
		}

		httpReq, err := inv.buildRequest(ctx, desc, req, credential)
		if err != nil {
			return nil, err
		}

		resp, err := inv.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", broker.ErrBrokerUnavailable, ctx.Err())
			}

			// The request may have been accepted before the connection
			// failed. Only idempotent actions are safe to resend.
			if !desc.Idempotent {
				return nil, fmt.Errorf("%w: %w: %w", broker.ErrBrokerUnavailable, ErrAmbiguousFailure, err)
			}

			lastErr = fmt.Errorf("%w: %w", broker.ErrBrokerUnavailable, err)

			if !inv.wait(ctx, inv.backoff*time.Duration(attempt)) {
				return nil, lastErr
			}

			continue
		}

		body, readErr := io.ReadAll(resp.Body)

		if err := resp.Body.Close(); err != nil {
			inv.logger.WarnContext(ctx, "Failed to close response body", "error", err)
		}

		if readErr != nil {
			if !desc.Idempotent {
				return nil, fmt.Errorf("%w: %w: %w", broker.ErrBrokerUnavailable, ErrAmbiguousFailure, readErr)
			}

			lastErr = fmt.Errorf("%w: failed to read response: %w", broker.ErrBrokerUnavailable, readErr)

			if !inv.wait(ctx, inv.backoff*time.Duration(attempt)) {
				return nil, lastErr
			}

			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < inv.maxAttempts {
			// The broker rejected the request before executing it, so a
			// retry is safe regardless of idempotency.
			if !inv.wait(ctx, retryAfter(resp, inv.backoff*time.Duration(attempt))) {
				return nil, fmt.Errorf("%w: rate limited", broker.ErrBrokerUnavailable)
			}

			lastErr = fmt.Errorf("%w: rate limited (status 429)", broker.ErrBrokerUnavailable)

			continue
		}

		if resp.StatusCode >= 500 && attempt < inv.maxAttempts {
			lastErr = fmt.Errorf("%w: status %d", broker.ErrBrokerUnavailable, resp.StatusCode)

			if !inv.wait(ctx, inv.backoff*time.Duration(attempt)) {
				return nil, lastErr
			}

			continue
		}

		return &rawResponse{StatusCode: resp.StatusCode, Body: body}, nil
	}

	if lastErr == nil {
		lastErr = broker.ErrBrokerUnavailable
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", inv.maxAttempts, lastErr)
}

func (inv *invoker) buildRequest(ctx context.Context, desc *catalog.Descriptor, req broker.ActionRequest, credential string) (*http.Request, error) {
	var (
		endpoint string
		body     io.Reader
	)

	switch desc.Shape {
	case catalog.ShapeEnvelope:
		endpoint = fmt.Sprintf("%s/projects/%s/actions", inv.baseURL, inv.projectID)

		payload, err := json.Marshal(map[string]any{
			"action":     req.Action,
			"parameters": req.Parameters,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode action envelope: %w", broker.ErrInvalidRequest, err)
		}

		body = bytes.NewReader(payload)

	case catalog.ShapeProxy:
		endpoint = fmt.Sprintf("%s/projects/%s/sdk/proxy/%s/%s", inv.baseURL, inv.projectID, req.Integration, desc.ProxyPath)

		if desc.Method == http.MethodGet {
			if len(req.Parameters) > 0 {
				endpoint += "?" + queryString(req.Parameters)
			}
		} else {
			payload, err := json.Marshal(req.Parameters)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to encode parameters: %w", broker.ErrInvalidRequest, err)
			}

			body = bytes.NewReader(payload)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported payload shape %q", broker.ErrConfiguration, desc.Shape)
	}

	httpReq, err := http.NewRequestWithContext(ctx, desc.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+credential)
	httpReq.Header.Set("Content-Type", "application/json")

	return httpReq, nil
}

// wait sleeps for the backoff window or until the caller cancels. Returns
// false when the context ended first.
func (inv *invoker) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return fallback
	}

	wait := time.Duration(seconds) * time.Second
	if wait > maxRetryAfterWait {
		wait = maxRetryAfterWait
	}

	return wait
}

func queryString(params map[string]any) string {
	values := url.Values{}

	for k, v := range params {
		switch val := v.(type) {
		case string:
			values.Set(k, val)
		case float64:
			values.Set(k, strconv.FormatFloat(val, 'f', -1, 64))
		case int:
			values.Set(k, strconv.Itoa(val))
		case bool:
			values.Set(k, strconv.FormatBool(val))
		default:
			encoded, err := json.Marshal(val)
			if err == nil {
				values.Set(k, string(encoded))
			}
		}
	}

	return values.Encode()
}
