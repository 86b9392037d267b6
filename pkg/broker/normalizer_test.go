package broker_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leviousa/leviousa-broker/pkg/broker"
)

const testReconnectURL = "https://connect.useparagon.com/connect?integration=gmail&projectId=p1&userId=U1"

func TestNormalize_Success(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusOK, []byte(`{"id":"abc123"}`), testReconnectURL)

	require.Equal(t, broker.StatusSuccess, result.Status)
	assert.JSONEq(t, `{"id":"abc123"}`, string(result.Payload))
	assert.Empty(t, result.ReconnectURL)
	assert.Empty(t, result.ErrorKind)
}

func TestNormalize_Unauthorized(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		result := broker.Normalize(status, []byte(`{"message":"no grant"}`), testReconnectURL)

		require.Equal(t, broker.StatusAuthRequired, result.Status)
		assert.Equal(t, testReconnectURL, result.ReconnectURL)
	}
}

func TestNormalize_NeedsAuthBody(t *testing.T) {
	t.Parallel()

	// A 200 whose body signals a missing grant is authentication-required,
	// never success.
	tests := []struct {
		name string
		body string
	}{
		{name: "needsAuth flag", body: `{"needsAuth": true}`},
		{name: "not connected code", body: `{"code": "integration_not_connected"}`},
		{name: "errorCode field", body: `{"errorCode": "auth_required"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := broker.Normalize(http.StatusOK, []byte(tt.body), testReconnectURL)

			require.Equal(t, broker.StatusAuthRequired, result.Status)
			assert.Equal(t, testReconnectURL, result.ReconnectURL)
		})
	}
}

func TestNormalize_NeedsAuthFalseIsSuccess(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusOK, []byte(`{"needsAuth": false, "id": "x"}`), testReconnectURL)

	assert.Equal(t, broker.StatusSuccess, result.Status)
}

func TestNormalize_EnvelopeUnwrapping(t *testing.T) {
	t.Parallel()

	nested := broker.Normalize(http.StatusOK, []byte(`{"output":{"resource":{"uri":"spotify:track:1"}}}`), testReconnectURL)
	flat := broker.Normalize(http.StatusOK, []byte(`{"resource":{"uri":"spotify:track:1"}}`), testReconnectURL)

	require.Equal(t, broker.StatusSuccess, nested.Status)
	require.Equal(t, broker.StatusSuccess, flat.Status)

	// Both envelope shapes unwrap to the identical resource payload.
	assert.JSONEq(t, `{"uri":"spotify:track:1"}`, string(nested.Payload))
	assert.JSONEq(t, string(flat.Payload), string(nested.Payload))
}

func TestNormalize_OutputWithoutResource(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusOK, []byte(`{"output":{"id":"42"}}`), testReconnectURL)

	require.Equal(t, broker.StatusSuccess, result.Status)
	assert.JSONEq(t, `{"id":"42"}`, string(result.Payload))
}

func TestNormalize_NonObjectJSON(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusOK, []byte(`[{"id":"1"},{"id":"2"}]`), testReconnectURL)

	require.Equal(t, broker.StatusSuccess, result.Status)
	assert.JSONEq(t, `[{"id":"1"},{"id":"2"}]`, string(result.Payload))
}

func TestNormalize_EmptyBody(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusNoContent, nil, testReconnectURL)

	require.Equal(t, broker.StatusSuccess, result.Status)
	assert.JSONEq(t, `{}`, string(result.Payload))
}

func TestNormalize_MalformedBody(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusOK, []byte(`<html>gateway error</html>`), testReconnectURL)

	require.Equal(t, broker.StatusFailure, result.Status)
	assert.Equal(t, broker.KindUnparseableResponse, result.ErrorKind)
	assert.NotEmpty(t, result.Message)
}

func TestNormalize_ClientError(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusNotFound, []byte(`{"message":"unknown workflow"}`), testReconnectURL)

	require.Equal(t, broker.StatusFailure, result.Status)
	assert.Equal(t, broker.KindInvalidRequest, result.ErrorKind)
	assert.Contains(t, result.Message, "unknown workflow")
}

func TestNormalize_ServerError(t *testing.T) {
	t.Parallel()

	result := broker.Normalize(http.StatusInternalServerError, []byte(`{"error":"boom"}`), testReconnectURL)

	require.Equal(t, broker.StatusFailure, result.Status)
	assert.Equal(t, broker.KindBrokerUnavailable, result.ErrorKind)
	assert.Contains(t, result.Message, "boom")
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	// Normalize is a pure function: the same input always yields the same
	// result.
	body := []byte(`{"output":{"resource":{"id":"abc"}}}`)

	first := broker.Normalize(http.StatusOK, body, testReconnectURL)
	second := broker.Normalize(http.StatusOK, body, testReconnectURL)

	assert.Equal(t, first, second)
}

func TestNormalize_AlwaysExactlyOneVariant(t *testing.T) {
	t.Parallel()

	inputs := []struct {
		status int
		body   string
	}{
		{200, `{"id":"1"}`},
		{200, `{"needsAuth":true}`},
		{200, `not json`},
		{401, ``},
		{403, `{}`},
		{404, `{}`},
		{429, `{}`},
		{500, ``},
		{502, `<html></html>`},
	}

	for _, in := range inputs {
		result := broker.Normalize(in.status, []byte(in.body), testReconnectURL)

		switch result.Status {
		case broker.StatusSuccess:
			assert.NotNil(t, result.Payload)
			assert.Empty(t, result.ErrorKind)
		case broker.StatusAuthRequired:
			assert.NotEmpty(t, result.ReconnectURL)
			assert.Empty(t, result.ErrorKind)
		case broker.StatusFailure:
			assert.NotEmpty(t, result.ErrorKind)
			assert.NotEmpty(t, result.Message)
		default:
			t.Fatalf("normalizer produced unknown status %q for input %+v", result.Status, in)
		}
	}
}

func TestActionRequest_ParameterRoundTrip(t *testing.T) {
	t.Parallel()

	req := broker.ActionRequest{
		Integration: "gmail",
		Action:      "GMAIL_SEND_EMAIL",
		Parameters: map[string]any{
			"toRecipients":   []any{"a@example.com", "b@example.com"},
			"subject":        "hello",
			"messageContent": "body",
			"nested":         map[string]any{"depth": map[string]any{"list": []any{1.0, 2.0}}},
		},
	}

	encoded, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded broker.ActionRequest
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, req, decoded)
}

func TestActionRequest_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, broker.ActionRequest{Integration: "gmail", Action: "A"}.Validate())
	assert.ErrorIs(t, broker.ActionRequest{Action: "A"}.Validate(), broker.ErrMissingIntegration)
	assert.ErrorIs(t, broker.ActionRequest{Integration: "gmail"}.Validate(), broker.ErrMissingAction)
	assert.ErrorIs(t, broker.ActionRequest{}.Validate(), broker.ErrInvalidRequest)
}

func TestReconnectURL(t *testing.T) {
	t.Parallel()

	url := broker.ReconnectURL("", "p1", "gmail", "U1")

	assert.Contains(t, url, broker.DefaultConnectPortalURL)
	assert.Contains(t, url, "integration=gmail")
	assert.Contains(t, url, "userId=U1")
	assert.Contains(t, url, "projectId=p1")
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, broker.KindConfiguration, broker.KindOf(broker.ErrConfiguration))
	assert.Equal(t, broker.KindUnauthorized, broker.KindOf(broker.ErrUnauthorized))
	assert.Equal(t, broker.KindInvalidRequest, broker.KindOf(broker.ErrInvalidRequest))
	assert.Equal(t, broker.KindBrokerUnavailable, broker.KindOf(broker.ErrBrokerUnavailable))
	assert.Equal(t, broker.KindUnparseableResponse, broker.KindOf(assert.AnError))
}
