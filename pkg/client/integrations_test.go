package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leviousa/leviousa-broker/pkg/broker"
)

func TestConnectedIntegrations(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/proj-1/sdk/me", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"integrations": {
				"gmail": {"enabled": true, "dateAdded": "2025-01-15T10:00:00Z", "dateValidated": "2025-06-01T08:30:00Z"},
				"slack": {"enabled": false},
				"calendly": {"enabled": true}
			}
		}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	conns, err := c.ConnectedIntegrations(context.Background(), "U1")
	require.NoError(t, err)

	// Disabled integrations are not part of the connected set.
	require.Len(t, conns, 2)

	byName := map[string]time.Time{}
	for _, conn := range conns {
		byName[conn.Integration] = conn.ConnectedAt
	}

	require.Contains(t, byName, "gmail")
	require.Contains(t, byName, "calendly")
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), byName["gmail"])
	assert.True(t, byName["calendly"].IsZero())
}

func TestConnectedIntegrations_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, expected: broker.ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, expected: broker.ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, expected: broker.ErrBrokerUnavailable},
		{name: "client error", status: http.StatusBadRequest, body: `{}`, expected: broker.ErrInvalidRequest},
		{name: "garbage body", status: http.StatusOK, body: `<html>`, expected: broker.ErrUnparseableResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)

			_, err := c.ConnectedIntegrations(context.Background(), "U1")
			require.ErrorIs(t, err, tt.expected)
		})
	}
}
