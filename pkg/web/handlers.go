// Package web exposes the broker client over HTTP for the desktop shell and
// the dashboard.
package web

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/leviousa/leviousa-broker/pkg/client"
	"github.com/leviousa/leviousa-broker/pkg/connections"
)

type APIHandlers struct {
	client    *client.Client
	cache     *connections.Cache
	refresher *connections.Refresher
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	brokerClient *client.Client,
	cache *connections.Cache,
	refresher *connections.Refresher,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		client:    brokerClient,
		cache:     cache,
		refresher: refresher,
		validator: validate,
		logger:    logger.With("module", "web"),
	}
}

// Register mounts all routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	v1 := app.Group("/v1")
	v1.Post("/actions", h.InvokeAction)
	v1.Get("/users/:userId/integrations", h.GetIntegrations)
	v1.Get("/users/:userId/integrations/:integration/connect-url", h.GetConnectURL)

	app.Get("/health", h.Health)
}

// InvokeAction executes one broker action. Authentication-required is a
// normal outcome carried in the result body, not an HTTP error: the UI needs
// the reconnect URL, not a failure page.
func (h *APIHandlers) InvokeAction(c fiber.Ctx) error {
	var req InvokeActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.client.InvokeAction(c.Context(), req.UserID, req.Integration, req.Action, req.Parameters)
	if err != nil {
		return handleClientError(c, err)
	}

	return c.JSON(result)
}

// GetIntegrations returns the (possibly cached) snapshot of a user's
// connected integrations.
func (h *APIHandlers) GetIntegrations(c fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return badRequest(c, "userId is required")
	}

	snapshot, err := h.cache.Get(c.Context(), userID)
	if err != nil {
		return handleClientError(c, err)
	}

	if h.refresher != nil {
		h.refresher.Track(userID)
	}

	return c.JSON(IntegrationsResponse{
		UserID:      snapshot.UserID,
		Connections: snapshot.Connections,
		FetchedAt:   snapshot.FetchedAt.Format(time.RFC3339),
	})
}

func (h *APIHandlers) GetConnectURL(c fiber.Ctx) error {
	userID := c.Params("userId")
	integration := c.Params("integration")

	if userID == "" || integration == "" {
		return badRequest(c, "userId and integration are required")
	}

	return c.JSON(ConnectURLResponse{
		UserID:      userID,
		Integration: integration,
		URL:         h.client.ReconnectURL(userID, integration),
	})
}

func (h *APIHandlers) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
