package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ebrains-prov/provenance-api/pkg/eventbus"
	"github.com/ebrains-prov/provenance-api/pkg/events"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/mapping"
	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Gate decides whether the caller may modify records in a space.
type Gate interface {
	MayModify(ctx context.Context, space, token string) (bool, error)
}

// Dependencies are shared by every record service.
type Dependencies struct {
	Connector kg.Connector
	Mapper    *mapping.Mapper
	Gate      Gate
	Events    eventbus.Publisher
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// codec ties an API record type R and its patch type P to the graph node N
// that stores it.
type codec[R, P any, N kg.Node] struct {
	resource  string
	label     string
	graphType string

	toGraph    func(ctx context.Context, store kg.Store, record R) (N, error)
	fromGraph  func(ctx context.Context, store kg.Store, node N) (R, error)
	applyPatch func(ctx context.Context, store kg.Store, node N, patch P) error

	recordID func(R) *string
	setID    func(*R, string)
	patchID  func(P) *string

	// carry copies properties the API does not expose from the stored node
	// onto its replacement.
	carry func(old, replacement N)
}

// crud runs the record life cycle shared by every kind of record.
type crud[R, P any, N kg.Node] struct {
	codec[R, P, N]

	connector kg.Connector
	gate      Gate
	events    eventbus.Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

func newCrud[R, P any, N kg.Node](c codec[R, P, N], deps Dependencies) *crud[R, P, N] {
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &crud[R, P, N]{
		codec:     c,
		connector: deps.Connector,
		gate:      deps.Gate,
		events:    deps.Events,
		tracer:    tracer,
		logger:    logger.With("module", "services", "resource", c.resource),
	}
}

// Resource returns the collection name records of this kind are served under.
func (c *crud[R, P, N]) Resource() string {
	return c.resource
}

func (c *crud[R, P, N]) span(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, c.tracer, "services."+c.resource+"."+op,
		attribute.String(otelhelper.RecordKindKey, c.resource),
		attribute.String(otelhelper.RecordIDKey, id),
	)
}

// load fetches the record id. A missing instance and an instance of another
// type are both reported as not found.
func (c *crud[R, P, N]) load(ctx context.Context, store kg.Store, op, id string) (N, error) {
	var zero N

	node, err := kg.GetAs(ctx, store, id, c.graphType, kg.ScopeInProgress)
	if kg.IsNotFound(err) {
		return zero, notFound(op, c.label, id, err)
	}

	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	typed, ok := node.(N)
	if !ok {
		return zero, notFound(op, c.label, id, nil)
	}

	return typed, nil
}

// checkNew fails when id already names an instance.
func (c *crud[R, P, N]) checkNew(ctx context.Context, store kg.Store, op, id string) error {
	_, err := store.Get(ctx, id, kg.ScopeInProgress)

	switch {
	case err == nil:
		return exists(op, c.label, id)
	case kg.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (c *crud[R, P, N]) authorize(ctx context.Context, op, verb, space, token string) error {
	ok, err := c.gate.MayModify(ctx, space, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return forbidden(op, verb)
	}

	return nil
}

func (c *crud[R, P, N]) publish(ctx context.Context, typ events.EventType, id, space string) {
	if c.events == nil {
		return
	}

	event := events.NewRecordChanged(typ, c.resource, id, space)
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "failed to publish record event", "event", typ, "id", id, "error", err)
	}
}

// Get returns the record id as the caller sees it.
func (c *crud[R, P, N]) Get(ctx context.Context, token, id string) (R, error) {
	ctx, span := c.span(ctx, "get", id)
	defer span.End()

	var zero R

	store := c.connector.ForToken(token)

	node, err := c.load(ctx, store, "get", id)
	if err != nil {
		return zero, otelhelper.SetError(span, err)
	}

	record, err := c.fromGraph(ctx, store, node)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("get", err))
	}

	return record, nil
}

// list maps every node matched by opts.
func (c *crud[R, P, N]) list(ctx context.Context, token string, opts kg.ListOptions) ([]R, error) {
	ctx, span := c.span(ctx, "list", "")
	defer span.End()

	store := c.connector.ForToken(token)

	opts.Type = c.graphType
	if opts.Scope == "" {
		opts.Scope = kg.ScopeInProgress
	}

	span.SetAttributes(attribute.String(otelhelper.SpaceKey, opts.Space))

	nodes, err := store.List(ctx, opts)
	if err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("list: %w", err))
	}

	records := make([]R, 0, len(nodes))

	for _, node := range nodes {
		typed, ok := node.(N)
		if !ok {
			continue
		}

		record, err := c.fromGraph(ctx, store, typed)
		if err != nil {
			return nil, otelhelper.SetError(span, mappingError("list", err))
		}

		records = append(records, record)
	}

	return records, nil
}

// Create stores a new record in space, "myspace" when empty. A caller
// supplied identifier must not name an existing instance.
func (c *crud[R, P, N]) Create(ctx context.Context, token string, record R, space string) (R, error) {
	var zero R

	if space == "" {
		space = kg.MySpace
	}

	store := c.connector.ForToken(token)

	id, err := c.prepareNew(ctx, store, &record)
	if err != nil {
		return zero, err
	}

	ctx, span := c.span(ctx, "create", id)
	defer span.End()

	span.SetAttributes(attribute.String(otelhelper.SpaceKey, space))

	node, err := c.toGraph(ctx, store, record)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("create", err))
	}

	if err := store.Save(ctx, node, kg.SaveOptions{Space: space, Recursive: true}); err != nil {
		return zero, otelhelper.SetError(span, mappingError("create", err))
	}

	created, err := c.fromGraph(ctx, store, node)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("create", err))
	}

	c.publish(ctx, events.RecordCreatedEvent, node.Instance().UUID(), space)

	return created, nil
}

// prepareNew rejects identifiers already in use and assigns one when the
// record has none.
func (c *crud[R, P, N]) prepareNew(ctx context.Context, store kg.Store, record *R) (string, error) {
	if id := c.recordID(*record); id != nil && *id != "" {
		if err := c.checkNew(ctx, store, "create", *id); err != nil {
			return "", err
		}

		return *id, nil
	}

	id := uuid.NewString()
	c.setID(record, id)

	return id, nil
}

// Replace overwrites the record id in the space it already lives in.
func (c *crud[R, P, N]) Replace(ctx context.Context, token, id string, record R) (R, error) {
	ctx, span := c.span(ctx, "replace", id)
	defer span.End()

	var zero R

	store := c.connector.ForToken(token)

	existing, err := c.load(ctx, store, "replace", id)
	if err != nil {
		return zero, otelhelper.SetError(span, err)
	}

	space := existing.Instance().Space

	if err := c.authorize(ctx, "replace", "replace", space, token); err != nil {
		return zero, otelhelper.SetError(span, err)
	}

	if rid := c.recordID(record); rid != nil && !sameID(*rid, id) {
		return zero, NewValidationError("replace", "id_mismatch", "The ID of the payload does not match the URL", ErrIDMismatch)
	}

	c.setID(&record, existing.Instance().UUID())

	node, err := c.toGraph(ctx, store, record)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("replace", err))
	}

	if c.carry != nil {
		c.carry(existing, node)
	}

	node.Instance().ID = existing.Instance().ID
	node.Instance().Space = space

	if err := store.Save(ctx, node, kg.SaveOptions{Space: space, Recursive: true, Replace: true}); err != nil {
		return zero, otelhelper.SetError(span, mappingError("replace", err))
	}

	replaced, err := c.fromGraph(ctx, store, node)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("replace", err))
	}

	c.publish(ctx, events.RecordReplacedEvent, node.Instance().UUID(), space)

	return replaced, nil
}

// Patch changes the fields present in patch and leaves the others alone.
func (c *crud[R, P, N]) Patch(ctx context.Context, token, id string, patch P) (R, error) {
	ctx, span := c.span(ctx, "patch", id)
	defer span.End()

	var zero R

	store := c.connector.ForToken(token)

	node, err := c.load(ctx, store, "patch", id)
	if err != nil {
		return zero, otelhelper.SetError(span, err)
	}

	space := node.Instance().Space

	if err := c.authorize(ctx, "patch", "modify", space, token); err != nil {
		return zero, otelhelper.SetError(span, err)
	}

	if pid := c.patchID(patch); pid != nil && !sameID(*pid, id) {
		return zero, NewValidationError("patch", "id_mismatch", "Modifying the record ID is not permitted.", ErrIDMismatch)
	}

	if err := c.applyPatch(ctx, store, node, patch); err != nil {
		return zero, otelhelper.SetError(span, mappingError("patch", err))
	}

	if err := store.Save(ctx, node, kg.SaveOptions{Space: space, Recursive: true}); err != nil {
		return zero, otelhelper.SetError(span, mappingError("patch", err))
	}

	patched, err := c.fromGraph(ctx, store, node)
	if err != nil {
		return zero, otelhelper.SetError(span, mappingError("patch", err))
	}

	c.publish(ctx, events.RecordPatchedEvent, node.Instance().UUID(), space)

	return patched, nil
}

// Delete removes the record id. Nested entities it links to are kept.
func (c *crud[R, P, N]) Delete(ctx context.Context, token, id string) error {
	ctx, span := c.span(ctx, "delete", id)
	defer span.End()

	store := c.connector.ForToken(token)

	node, err := c.load(ctx, store, "delete", id)
	if err != nil {
		return otelhelper.SetError(span, err)
	}

	space := node.Instance().Space

	if err := c.authorize(ctx, "delete", "delete", space, token); err != nil {
		return otelhelper.SetError(span, err)
	}

	if err := store.Delete(ctx, node); err != nil {
		return otelhelper.SetError(span, fmt.Errorf("delete: %w", err))
	}

	c.publish(ctx, events.RecordDeletedEvent, node.Instance().UUID(), space)

	return nil
}

// sameID compares two identifiers as UUIDs, falling back to string
// equality for values that do not parse.
func sameID(a, b string) bool {
	ua, errA := uuid.Parse(kg.UUIDFromURI(a))
	ub, errB := uuid.Parse(kg.UUIDFromURI(b))

	if errA != nil || errB != nil {
		return a == b
	}

	return ua == ub
}

