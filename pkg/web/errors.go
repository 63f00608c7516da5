package web

import (
	"errors"
	"log/slog"

	"github.com/ebrains-prov/provenance-api/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// detail returns the client-facing message of err.
func detail(err error) string {
	var se *services.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}

	return err.Error()
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, logger *slog.Logger, err error) error {
	switch {
	case services.IsUnauthorized(err):
		return unauthorized(c, "the access token was rejected by the identity provider")

	case services.IsValidationError(err), services.IsConflictError(err):
		return badRequest(c, detail(err))

	case services.IsForbidden(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("forbidden").
			WithDetail(detail(err))

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case services.IsNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("not_found").
			WithDetail(detail(err))

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		logger.ErrorContext(c.Context(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)

		return internalError(c, err)
	}
}
