// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ebrains-prov/provenance-api/pkg/channels/gochannel"
	"github.com/ebrains-prov/provenance-api/pkg/channels/kafka"
	"github.com/ebrains-prov/provenance-api/pkg/eventbus"
)

// NewEventBus builds the record event bus. provider is "gochannel" or
// "kafka"; brokers and otel are only read for kafka.
func NewEventBus(provider string, brokers []string, otel bool, logger *slog.Logger) (eventbus.EventBus, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wlogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, kafka.Config{
			Brokers:     brokers,
			ServiceName: "provenance-api",
			OTEL:        otel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
