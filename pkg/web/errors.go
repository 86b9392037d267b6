package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/leviousa/leviousa-broker/pkg/broker"
	"github.com/leviousa/leviousa-broker/pkg/catalog"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleClientError maps pre-flight errors from the broker client onto the
// error taxonomy.
func handleClientError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, catalog.ErrUnknownAction):
		return notFound(c, err.Error())

	case errors.Is(err, broker.ErrInvalidRequest):
		return badRequest(c, err.Error())

	case errors.Is(err, broker.ErrUnauthorized):
		problem := problems.NewStatusProblem(401).
			WithInstance(c.Path()).
			WithType(string(broker.KindUnauthorized)).
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnauthorized).JSON(problem)

	case errors.Is(err, broker.ErrBrokerUnavailable):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType(string(broker.KindBrokerUnavailable)).
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		return internalError(c, err)
	}
}
