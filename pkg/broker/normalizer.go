package broker

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Normalize converts a raw broker response into exactly one ActionResult
// variant. It is a pure function: the same (status, body, reconnectURL)
// always yields the same result. It never panics on unexpected shapes;
// anything unrecognizable becomes a Failure with KindUnparseableResponse.
func Normalize(statusCode int, body []byte, reconnectURL string) *ActionResult {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return AuthRequired(reconnectURL)

	case statusCode >= 200 && statusCode < 300:
		return normalizeSuccess(body, reconnectURL)

	case statusCode == http.StatusTooManyRequests:
		// Rate limits are transient; the invoker retries them, so landing
		// here means the budget was exhausted.
		return Failed(KindBrokerUnavailable, "broker rate limit exceeded: "+errorDetail(body))

	case statusCode >= 400 && statusCode < 500:
		return Failed(KindInvalidRequest, fmt.Sprintf("broker rejected the request (status %d): %s", statusCode, errorDetail(body)))

	default:
		return Failed(KindBrokerUnavailable, fmt.Sprintf("broker returned status %d: %s", statusCode, errorDetail(body)))
	}
}

func normalizeSuccess(body []byte, reconnectURL string) *ActionResult {
	if len(body) == 0 {
		return Success(json.RawMessage(`{}`))
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		// Non-object JSON (arrays, scalars) is still a valid payload.
		if json.Valid(body) {
			return Success(json.RawMessage(body))
		}

		return Failed(KindUnparseableResponse, "broker returned a 2xx response with a non-JSON body")
	}

	if signalsMissingAuthorization(probe) {
		return AuthRequired(reconnectURL)
	}

	return Success(unwrapEnvelope(probe, body))
}

// signalsMissingAuthorization detects 200 responses whose body reports a
// missing integration grant. Some broker surfaces answer this way instead
// of using a 401.
func signalsMissingAuthorization(probe map[string]json.RawMessage) bool {
	if raw, ok := probe["needsAuth"]; ok {
		var needsAuth bool
		if err := json.Unmarshal(raw, &needsAuth); err == nil && needsAuth {
			return true
		}
	}

	for _, field := range []string{"code", "errorCode"} {
		raw, ok := probe[field]
		if !ok {
			continue
		}

		var code string
		if err := json.Unmarshal(raw, &code); err != nil {
			continue
		}

		switch code {
		case "integration_not_connected", "user_not_connected", "auth_required":
			return true
		}
	}

	return false
}

// unwrapEnvelope strips the nesting some broker surfaces add around the
// actual content. Both `{output: {resource: ...}}` and flat `{resource: ...}`
// unwrap to the resource value; envelope divergence between integrations is
// a compatibility concern, never an error.
func unwrapEnvelope(probe map[string]json.RawMessage, body []byte) json.RawMessage {
	if output, ok := probe["output"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(output, &inner); err == nil {
			if resource, ok := inner["resource"]; ok {
				return resource
			}

			return output
		}

		return output
	}

	if resource, ok := probe["resource"]; ok {
		return resource
	}

	return json.RawMessage(body)
}

func errorDetail(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}

		if envelope.Error != "" {
			return envelope.Error
		}
	}

	const maxDetail = 200

	detail := string(body)
	if len(detail) > maxDetail {
		detail = detail[:maxDetail]
	}

	if detail == "" {
		detail = "no response body"
	}

	return detail
}
