package catalog

import "net/http"

// builtinDescriptors covers the integrations Leviousa ships with. Endpoint
// conventions were confirmed per integration against the broker; do not
// assume a new integration follows either shape without checking.
func builtinDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Integration: "gmail",
			Action:      "GMAIL_SEND_EMAIL",
			Method:      http.MethodPost,
			Shape:       ShapeEnvelope,
			Idempotent:  false,
			Parameters: map[string]any{
				"type":     "object",
				"required": []any{"toRecipients", "subject", "messageContent"},
				"properties": map[string]any{
					"toRecipients":   map[string]any{"type": "array"},
					"subject":        map[string]any{"type": "string"},
					"messageContent": map[string]any{"type": "string"},
				},
			},
		},
		{
			Integration: "gmail",
			Action:      "GMAIL_SEARCH_MESSAGES",
			Method:      http.MethodGet,
			Shape:       ShapeProxy,
			ProxyPath:   "gmail/v1/users/me/messages",
			Idempotent:  true,
		},
		{
			Integration: "googleCalendar",
			Action:      "GOOGLE_CALENDAR_CREATE_EVENT",
			Method:      http.MethodPost,
			Shape:       ShapeEnvelope,
			Idempotent:  false,
			Parameters: map[string]any{
				"type":     "object",
				"required": []any{"summary", "start", "end"},
				"properties": map[string]any{
					"summary": map[string]any{"type": "string"},
					"start":   map[string]any{"type": "object"},
					"end":     map[string]any{"type": "object"},
				},
			},
		},
		{
			Integration: "googleCalendar",
			Action:      "GOOGLE_CALENDAR_LIST_EVENTS",
			Method:      http.MethodGet,
			Shape:       ShapeProxy,
			ProxyPath:   "calendar/v3/calendars/primary/events",
			Idempotent:  true,
		},
		{
			Integration: "slack",
			Action:      "SLACK_SEND_MESSAGE",
			Method:      http.MethodPost,
			Shape:       ShapeEnvelope,
			Idempotent:  false,
			Parameters: map[string]any{
				"type":     "object",
				"required": []any{"channel", "message"},
				"properties": map[string]any{
					"channel": map[string]any{"type": "string"},
					"message": map[string]any{"type": "string"},
				},
			},
		},
		{
			Integration: "linkedin",
			Action:      "LINKEDIN_CREATE_POST",
			Method:      http.MethodPost,
			Shape:       ShapeProxy,
			ProxyPath:   "v2/ugcPosts",
			Idempotent:  false,
		},
		{
			Integration: "calendly",
			Action:      "CALENDLY_LIST_SCHEDULED_EVENTS",
			Method:      http.MethodGet,
			Shape:       ShapeProxy,
			ProxyPath:   "scheduled_events",
			Idempotent:  true,
		},
	}
}
