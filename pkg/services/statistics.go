package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	statisticsSpace = "computation"
	maxParallel     = 8
)

// Statistics reports how many workflow executions each space holds.
type Statistics struct {
	connector kg.Connector
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewStatistics(connector kg.Connector, logger *slog.Logger, tracer trace.Tracer) *Statistics {
	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Statistics{
		connector: connector,
		tracer:    tracer,
		logger:    logger.With("module", "statistics"),
	}
}

// WorkflowCounts counts the workflow executions in the caller's private
// space, in every collab space they can access and in the shared
// "computation" space when it is accessible. A space whose count fails is
// reported with zero.
func (s *Statistics) WorkflowCounts(ctx context.Context, token string) ([]models.WorkflowCount, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.statistics.workflows")
	defer span.End()

	store := s.connector.ForToken(token)

	accessible, err := store.Spaces(ctx)
	if err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("statistics: %w", err))
	}

	spaces := []string{kg.MySpace}
	shared := false

	for _, space := range accessible {
		switch {
		case strings.HasPrefix(space, "collab"):
			spaces = append(spaces, space)
		case space == statisticsSpace:
			shared = true
		}
	}

	if shared {
		spaces = append(spaces, statisticsSpace)
	}

	span.SetAttributes(attribute.Int("prov.space_count", len(spaces)))

	counts := make([]models.WorkflowCount, len(spaces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, space := range spaces {
		g.Go(func() error {
			n, err := store.Count(gctx, kg.ListOptions{
				Type:  kg.TypeWorkflowExecution,
				Space: space,
				Scope: kg.ScopeAny,
			})
			if err != nil {
				s.logger.WarnContext(gctx, "failed to count workflows", "space", space, "error", err)
				n = 0
			}

			counts[i] = models.WorkflowCount{Space: space, Count: n}

			return nil
		})
	}

	_ = g.Wait()

	return counts, nil
}
