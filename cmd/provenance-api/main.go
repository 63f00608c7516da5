package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/ebrains-prov/provenance-api/pkg/cmd"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/log"
	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"github.com/ebrains-prov/provenance-api/pkg/vocab"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 8000

func main() {
	cmd := &cli.Command{
		Name:                  "provenance-api",
		Usage:                 "Record and query the provenance of computations in the EBRAINS Knowledge Graph",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "kg-host",
				Usage:    "KG core API host, file://<dir> for a local file store or a postgres:// URL",
				Required: true,
				Sources:  cli.EnvVars("KG_CORE_API_HOST"),
			},
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "OAuth2 client of the service account and the login flow",
				Sources: cli.EnvVars("EBRAINS_IAM_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "OAuth2 client secret",
				Sources: cli.EnvVars("EBRAINS_IAM_SECRET"),
			},
			&cli.StringFlag{
				Name:    "iam-issuer",
				Usage:   "OpenID Connect issuer of the identity provider",
				Value:   auth.DefaultIssuer,
				Sources: cli.EnvVars("EBRAINS_IAM_ISSUER"),
			},
			&cli.StringFlag{
				Name:    "collab-service",
				Usage:   "Base URL of the collaboration service",
				Value:   auth.DefaultCollabService,
				Sources: cli.EnvVars("HBP_COLLAB_SERVICE_URL"),
			},
			&cli.StringFlag{
				Name:    "session-secret",
				Usage:   "Key signing the login state",
				Sources: cli.EnvVars("SESSIONS_SECRET_KEY"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public base URL of the API, for login redirects",
				Value:   "http://localhost:8000",
				Sources: cli.EnvVars("PROV_API_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "vocab-refresh",
				Usage:   "Cron schedule reloading the controlled vocabularies, empty to load once",
				Value:   "@every 6h",
				Sources: cli.EnvVars("VOCAB_REFRESH_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL caching collaboration visibility (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Record event bus (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers, when the event bus is kafka",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing provenance API")

	tracer, shutdown, err := otelhelper.NewTracer(ctx, "provenance-api", command.Bool("otel"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	identity, err := auth.NewOIDCProvider(ctx, command.String("iam-issuer"))
	if err != nil {
		return err
	}

	collabOpts := []auth.CollabOption{auth.WithCollabTracer(tracer)}

	if redisURL := command.String("redis-url"); redisURL != "" {
		cache, err := auth.NewRedisCacheFromURL(ctx, redisURL, auth.DefaultVisibilityTTL)
		if err != nil {
			return err
		}

		defer func() {
			if err := cache.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close permission cache", "error", err)
			}
		}()

		collabOpts = append(collabOpts, auth.WithCache(cache))
	}

	gate := auth.NewGate(identity, auth.NewCollabClient(command.String("collab-service"), logger, collabOpts...), logger)

	connector, err := cmd.NewConnector(ctx, command.String("kg-host"), identity, logger, tracer)
	if err != nil {
		return err
	}

	if closer, ok := connector.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close graph store", "error", err)
			}
		}()
	}

	clientID := command.String("client-id")
	clientSecret := command.String("client-secret")

	serviceStore := serviceStoreFunc(connector, identity, clientID, clientSecret)

	registry, err := loadVocabularies(ctx, serviceStore, logger)
	if err != nil {
		return err
	}

	if schedule := command.String("vocab-refresh"); schedule != "" {
		refresher, err := vocab.NewRefresher(registry, serviceStore, schedule, log.WithModule("vocab"))
		if err != nil {
			return err
		}

		if err := refresher.Start(ctx); err != nil {
			return err
		}

		defer refresher.Stop()
	}

	eventBus, err := cmd.NewEventBus(
		command.String("event-bus"),
		command.StringSlice("kafka-brokers"),
		command.Bool("otel"),
		log.WithModule("eventbus"),
	)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := subscribeRecordLog(ctx, eventBus, log.WithModule("events")); err != nil {
		return fmt.Errorf("failed to subscribe to record events: %w", err)
	}

	var login *auth.Login

	if secret := command.String("session-secret"); clientID != "" && secret != "" {
		redirect := strings.TrimSuffix(command.String("base-url"), "/") + "/auth"
		login = auth.NewLogin(identity.Endpoint(), clientID, clientSecret, redirect, []byte(secret))
	} else {
		logger.WarnContext(ctx, "Login routes disabled: client id or session secret not configured")
	}

	api := NewAPI(logger, connector, registry, gate, eventBus, login, tracer)

	if err := api.Start(command.Int("port")); err != nil {
		logger.ErrorContext(ctx, "Failed to start API server", "error", err)
		return err
	}

	return nil
}

// serviceStoreFunc returns stores acting for the service account. A file
// or postgres store needs no token, so a missing client id is accepted
// there.
func serviceStoreFunc(connector kg.Connector, identity *auth.OIDCProvider, clientID, clientSecret string) vocab.StoreFunc {
	return func(ctx context.Context) (kg.Store, error) {
		if clientID == "" {
			return connector.ForToken(""), nil
		}

		t, err := auth.ServiceTokenSource(ctx, identity.Endpoint(), clientID, clientSecret).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain service account token: %w", err)
		}

		return connector.ForToken(t.AccessToken), nil
	}
}

// loadVocabularies reads the controlled terms with the service account.
func loadVocabularies(ctx context.Context, serviceStore vocab.StoreFunc, logger *slog.Logger) (*vocab.Registry, error) {
	store, err := serviceStore(ctx)
	if err != nil {
		return nil, err
	}

	registry, err := vocab.Load(ctx, store, log.WithModule("vocab"))
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabularies: %w", err)
	}

	logger.InfoContext(ctx, "Vocabularies ready", "terms", registry.Len())

	return registry, nil
}
