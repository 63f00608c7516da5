package web

import (
	"context"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/gofiber/fiber/v3"
)

// recordService is the life cycle every record collection offers.
type recordService[R, P any] interface {
	Get(ctx context.Context, token, id string) (R, error)
	Create(ctx context.Context, token string, record R, space string) (R, error)
	Replace(ctx context.Context, token, id string, record R) (R, error)
	Patch(ctx context.Context, token, id string, patch P) (R, error)
	Delete(ctx context.Context, token, id string) error
}

// records serves one collection of records of type R patched with P.
type records[R, P any] struct {
	svc recordService[R, P]
	h   *APIHandlers
}

func mount[R, P any](g fiber.Router, r records[R, P]) {
	g.Post("/", r.create)
	g.Get("/:id", r.get)
	g.Put("/:id", r.replace)
	g.Patch("/:id", r.patch)
	g.Delete("/:id", r.delete)
}

// id returns the path identifier, or "" after answering 400.
func (r records[R, P]) id(c fiber.Ctx) (string, error) {
	id := c.Params("id")
	if err := r.h.validator.Var(id, "required,uuid"); err != nil {
		return "", badRequest(c, "the record identifier must be a UUID")
	}

	return id, nil
}

func (r records[R, P]) get(c fiber.Ctx) error {
	id, err := r.id(c)
	if id == "" {
		return err
	}

	record, err := r.svc.Get(c.Context(), bearer(c), id)
	if err != nil {
		return handleServiceError(c, r.h.logger, err)
	}

	return c.JSON(record)
}

func (r records[R, P]) create(c fiber.Ctx) error {
	var record R
	if err := c.Bind().JSON(&record); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := r.h.validator.Struct(record); err != nil {
		return badRequest(c, err.Error())
	}

	space := c.Query("space", kg.MySpace)

	created, err := r.svc.Create(c.Context(), bearer(c), record, space)
	if err != nil {
		return handleServiceError(c, r.h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (r records[R, P]) replace(c fiber.Ctx) error {
	id, err := r.id(c)
	if id == "" {
		return err
	}

	var record R
	if err := c.Bind().JSON(&record); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := r.h.validator.Struct(record); err != nil {
		return badRequest(c, err.Error())
	}

	replaced, err := r.svc.Replace(c.Context(), bearer(c), id, record)
	if err != nil {
		return handleServiceError(c, r.h.logger, err)
	}

	return c.JSON(replaced)
}

func (r records[R, P]) patch(c fiber.Ctx) error {
	id, err := r.id(c)
	if id == "" {
		return err
	}

	var patch P
	if err := c.Bind().JSON(&patch); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := r.h.validator.Struct(patch); err != nil {
		return badRequest(c, err.Error())
	}

	patched, err := r.svc.Patch(c.Context(), bearer(c), id, patch)
	if err != nil {
		return handleServiceError(c, r.h.logger, err)
	}

	return c.JSON(patched)
}

func (r records[R, P]) delete(c fiber.Ctx) error {
	id, err := r.id(c)
	if id == "" {
		return err
	}

	if err := r.svc.Delete(c.Context(), bearer(c), id); err != nil {
		return handleServiceError(c, r.h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
