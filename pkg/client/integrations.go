package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leviousa/leviousa-broker/pkg/broker"
	"github.com/leviousa/leviousa-broker/pkg/connections"
)

// userStateResponse is the broker's per-user state document. Integration
// entries arrive keyed by integration name.
type userStateResponse struct {
	Integrations map[string]struct {
		Enabled       bool       `json:"enabled"`
		DateAdded     *time.Time `json:"dateAdded"`
		DateValidated *time.Time `json:"dateValidated"`
	} `json:"integrations"`
}

// ConnectedIntegrations fetches the authoritative snapshot of a user's
// connected integrations from the broker. The result is a read-only copy;
// the broker's backend remains the owner of the set.
func (c *Client) ConnectedIntegrations(ctx context.Context, userID string) ([]connections.Connection, error) {
	credential, err := c.issuer.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue user credential: %w", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/sdk/me", c.invoker.baseURL, c.projectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential.Signed)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.invoker.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", broker.ErrBrokerUnavailable, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WarnContext(ctx, "Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", broker.ErrBrokerUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: broker rejected the user credential", broker.ErrUnauthorized)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", broker.ErrBrokerUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", broker.ErrInvalidRequest, resp.StatusCode)
	}

	var state userStateResponse
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", broker.ErrUnparseableResponse, err)
	}

	conns := make([]connections.Connection, 0, len(state.Integrations))

	for name, entry := range state.Integrations {
		if !entry.Enabled {
			continue
		}

		conn := connections.Connection{Integration: name}

		if entry.DateAdded != nil {
			conn.ConnectedAt = *entry.DateAdded
		}

		if entry.DateValidated != nil {
			conn.LastVerifiedAt = *entry.DateValidated
		}

		conns = append(conns, conn)
	}

	return conns, nil
}
