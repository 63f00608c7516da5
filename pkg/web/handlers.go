// Package web provides the HTTP handlers of the provenance API.
package web

import (
	"context"
	"log/slog"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const stateCookie = "prov_login_state"

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services are the record services served over HTTP.
type Services struct {
	Computations []*services.Computations
	Workflows    *services.Workflows
	Recipes      *services.Recipes
	Statistics   *services.Statistics
}

type APIHandlers struct {
	services  Services
	login     *auth.Login
	health    HealthChecker
	validator *validator.Validate
	logger    *slog.Logger
}

// NewAPIHandlers creates the handlers. login and health may be nil; without
// login the /login and /auth routes answer 404.
func NewAPIHandlers(
	svc Services,
	login *auth.Login,
	health HealthChecker,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		services:  svc,
		login:     login,
		health:    health,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	secured := RequireBearer(h.logger)

	for _, svc := range h.services.Computations {
		g := router.Group("/"+svc.Resource(), secured)
		g.Get("/", h.ListComputations(svc))
		mount(g, records[models.Computation, models.ComputationPatch]{svc: svc, h: h})
	}

	if h.services.Workflows != nil {
		g := router.Group("/workflows", secured)
		g.Get("/", h.ListWorkflows)
		mount(g, records[models.WorkflowExecution, models.WorkflowExecutionPatch]{svc: h.services.Workflows, h: h})
	}

	if h.services.Recipes != nil {
		g := router.Group("/recipes", secured)
		g.Get("/", h.ListRecipes)
		mount(g, records[models.WorkflowRecipe, models.WorkflowRecipePatch]{svc: h.services.Recipes, h: h})
	}

	if h.services.Statistics != nil {
		router.Group("/statistics", secured).Get("/spaces/", h.SpaceStatistics)
	}

	router.Get("/login", h.Login)
	router.Get("/auth", h.Auth)
}

func (h *APIHandlers) ListComputations(svc *services.Computations) fiber.Handler {
	return func(c fiber.Ctx) error {
		filter, err := parseComputationFilter(c)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		found, err := svc.List(c.Context(), bearer(c), filter)
		if err != nil {
			return handleServiceError(c, h.logger, err)
		}

		return c.JSON(found)
	}
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	found, err := h.services.Workflows.List(c.Context(), bearer(c), services.WorkflowFilter{
		Tags:  queryValues(c, "tags"),
		Space: page.Space,
		Size:  page.Size,
		From:  page.From,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) ListRecipes(c fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	found, err := h.services.Recipes.List(c.Context(), bearer(c), services.RecipeFilter{
		Space: page.Space,
		Size:  page.Size,
		From:  page.From,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) SpaceStatistics(c fiber.Ctx) error {
	counts, err := h.services.Statistics.WorkflowCounts(c.Context(), bearer(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(counts)
}

// Login redirects to the identity provider.
func (h *APIHandlers) Login(c fiber.Ctx) error {
	if h.login == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	url, state, err := h.login.Start()
	if err != nil {
		return internalError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		Secure:   c.Protocol() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect().To(url)
}

// Auth completes the login started by Login and returns the token.
func (h *APIHandlers) Auth(c fiber.Ctx) error {
	if h.login == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if err := h.login.VerifyState(c.Query("state"), c.Cookies(stateCookie)); err != nil {
		return unauthorized(c, err.Error())
	}

	code := c.Query("code")
	if code == "" {
		return badRequest(c, "the authorization code is missing")
	}

	token, err := h.login.Exchange(c.Context(), code)
	if err != nil {
		h.logger.WarnContext(c.Context(), "authorization code exchange failed", "error", err)
		return unauthorized(c, "the authorization code was rejected")
	}

	c.ClearCookie(stateCookie)

	return c.JSON(token)
}

// Ready is the readiness probe: the graph store must answer.
func (h *APIHandlers) Ready(c fiber.Ctx) bool {
	if h.health == nil {
		return true
	}

	if err := h.health.HealthCheck(c.Context()); err != nil {
		h.logger.WarnContext(c.Context(), "readiness check failed", "error", err)
		return false
	}

	return true
}
