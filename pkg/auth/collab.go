package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCollabService is the base URL of the EBRAINS collaboration
// service.
const DefaultCollabService = "https://wiki.ebrains.eu/rest/v1/"

// CollabService reports whether a collaboration is publicly visible.
type CollabService interface {
	IsPublic(ctx context.Context, collabID, token string) (bool, error)
}

// VisibilityCache remembers collaboration visibility between requests.
type VisibilityCache interface {
	Visibility(ctx context.Context, collabID string) (public, ok bool, err error)
	SetVisibility(ctx context.Context, collabID string, public bool) error
}

// CollabClient queries the collaboration service with the caller's token.
type CollabClient struct {
	base   string
	client *http.Client
	cache  VisibilityCache
	logger *slog.Logger
	tracer trace.Tracer
}

// CollabOption configures a CollabClient.
type CollabOption func(*CollabClient)

func WithCache(cache VisibilityCache) CollabOption {
	return func(c *CollabClient) { c.cache = cache }
}

func WithCollabHTTPClient(client *http.Client) CollabOption {
	return func(c *CollabClient) { c.client = client }
}

func WithCollabTracer(tracer trace.Tracer) CollabOption {
	return func(c *CollabClient) { c.tracer = tracer }
}

func NewCollabClient(base string, logger *slog.Logger, opts ...CollabOption) *CollabClient {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &CollabClient{
		base:   base,
		client: http.DefaultClient,
		logger: logger.With("module", "collab"),
		tracer: otelhelper.Noop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type collabInfo struct {
	IsPublic bool `json:"isPublic"`
}

// IsPublic fetches the collaboration description. A collaboration the
// service does not know answers with a JSON error body and is reported as
// not public; a body that is not JSON yields ErrInvalidCollab.
func (c *CollabClient) IsPublic(ctx context.Context, collabID, token string) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "collab.is_public", attribute.String(otelhelper.CollabIDKey, collabID))
	defer span.End()

	if c.cache != nil {
		public, ok, err := c.cache.Visibility(ctx, collabID)
		if err != nil {
			c.logger.WarnContext(ctx, "visibility cache read failed", "collab", collabID, "error", err)
		} else if ok {
			return public, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"collabs/"+url.PathEscape(collabID), nil)
	if err != nil {
		return false, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, otelhelper.SetError(span, fmt.Errorf("collab service: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("collab service: %w", err)
	}

	var info collabInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return false, otelhelper.SetError(span, fmt.Errorf("%w: %s", ErrInvalidCollab, collabID))
	}

	public := resp.StatusCode == http.StatusOK && info.IsPublic
	span.SetAttributes(attribute.Bool("prov.collab.public", public))

	if c.cache != nil {
		if err := c.cache.SetVisibility(ctx, collabID, public); err != nil {
			c.logger.WarnContext(ctx, "visibility cache write failed", "collab", collabID, "error", err)
		}
	}

	return public, nil
}
