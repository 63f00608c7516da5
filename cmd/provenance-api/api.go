// Package main provides the provenance API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/ebrains-prov/provenance-api/pkg/eventbus"
	"github.com/ebrains-prov/provenance-api/pkg/events"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/mapping"
	"github.com/ebrains-prov/provenance-api/pkg/services"
	"github.com/ebrains-prov/provenance-api/pkg/vocab"
	"github.com/ebrains-prov/provenance-api/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

// collections maps each computation kind to the path it is served under.
var collections = []struct {
	kind     mapping.Kind
	resource string
}{
	{mapping.Simulation, "simulations"},
	{mapping.DataAnalysis, "analyses"},
	{mapping.Visualisation, "visualisations"},
	{mapping.Optimisation, "optimisations"},
	{mapping.DataCopy, "datacopies"},
	{mapping.Generic, "computations"},
}

type API struct {
	logger    *slog.Logger
	connector kg.Connector
	registry  *vocab.Registry
	gate      services.Gate
	eventBus  eventbus.EventBus
	login     *auth.Login
	tracer    trace.Tracer
	validate  *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	connector kg.Connector,
	registry *vocab.Registry,
	gate services.Gate,
	eventBus eventbus.EventBus,
	login *auth.Login,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:    logger,
		connector: connector,
		registry:  registry,
		gate:      gate,
		eventBus:  eventBus,
		login:     login,
		tracer:    tracer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	deps := services.Dependencies{
		Connector: a.connector,
		Mapper:    mapping.New(a.registry),
		Gate:      a.gate,
		Events:    a.eventBus,
		Tracer:    a.tracer,
		Logger:    a.logger,
	}

	computations := make([]*services.Computations, 0, len(collections))
	for _, col := range collections {
		computations = append(computations, services.NewComputations(col.kind, col.resource, deps))
	}

	health, _ := a.connector.(web.HealthChecker)

	handlers := web.NewAPIHandlers(web.Services{
		Computations: computations,
		Workflows:    services.NewWorkflows(deps),
		Recipes:      services.NewRecipes(deps),
		Statistics:   services.NewStatistics(a.connector, a.logger, a.tracer),
	}, a.login, health, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: handlers.Ready,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("EBRAINS Provenance API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

// subscribeRecordLog logs every record event at debug level.
func subscribeRecordLog(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	for _, typ := range events.EventTypes {
		err := bus.Handle(typ, func(ctx context.Context, e events.RecordChanged) error {
			logger.DebugContext(ctx, "record changed",
				"event", e.Type, "kind", e.Kind, "record_id", e.RecordID, "space", e.Space)

			return nil
		})
		if err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}
