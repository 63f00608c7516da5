package vocab

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/robfig/cron/v3"
)

// StoreFunc returns the store a refresh reads from. It is called for every
// refresh so that short-lived service tokens can be renewed.
type StoreFunc func(ctx context.Context) (kg.Store, error)

// Refresher reloads a Registry on a cron schedule. A failed reload keeps
// the previous terms.
type Refresher struct {
	registry *Registry
	store    StoreFunc
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewRefresher(registry *Registry, store StoreFunc, schedule string, logger *slog.Logger) (*Refresher, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid vocabulary refresh schedule %q: %w", schedule, err)
	}

	return &Refresher{
		registry: registry,
		store:    store,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start schedules refreshes until ctx is done or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := r.cron.AddFunc(r.schedule, func() { _ = r.Refresh(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule vocabulary refresh: %w", err)
	}

	r.cron.Start()

	r.logger.InfoContext(ctx, "vocabulary refresh scheduled", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

func (r *Refresher) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Refresh reloads every vocabulary now.
func (r *Refresher) Refresh(ctx context.Context) error {
	store, err := r.store(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "vocabulary refresh skipped", "error", err)
		return err
	}

	loaded, err := Load(ctx, store, r.logger)
	if err != nil {
		r.logger.WarnContext(ctx, "vocabulary refresh failed, keeping previous terms", "error", err)
		return err
	}

	r.registry.Replace(loaded)

	return nil
}
