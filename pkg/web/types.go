package web

import (
	"github.com/leviousa/leviousa-broker/pkg/connections"
)

type InvokeActionRequest struct {
	UserID      string         `json:"user_id"     validate:"required"`
	Integration string         `json:"integration" validate:"required"`
	Action      string         `json:"action"      validate:"required"`
	Parameters  map[string]any `json:"parameters"`
}

type ConnectURLResponse struct {
	UserID      string `json:"user_id"`
	Integration string `json:"integration"`
	URL         string `json:"url"`
}

type IntegrationsResponse struct {
	UserID      string                   `json:"user_id"`
	Connections []connections.Connection `json:"connections"`
	FetchedAt   string                   `json:"fetched_at"`
}
