// Package kgcore implements kg.Store on top of the EBRAINS Knowledge Graph
// core API (v3).
package kgcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	schemaName       = "http://schema.org/name"
	schemaIdentifier = "http://schema.org/identifier"
	schemaAltName    = "http://schema.org/alternateName"
	schemaGivenName  = "http://schema.org/givenName"
	schemaFamilyName = "http://schema.org/familyName"
	queryVocab       = "https://schema.hbp.eu/myQuery/"
)

// Connector hands out KG core stores for a single API host.
type Connector struct {
	base   string
	logger *slog.Logger
	tracer trace.Tracer
	client *http.Client
}

// Option configures a Connector.
type Option func(*Connector)

// WithTracer records a span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Connector) { c.tracer = tracer }
}

// WithHTTPClient sets the client whose transport carries the requests. The
// bearer token is layered on top of its transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) { c.client = client }
}

// NewConnector creates a connector for host, e.g. "core.kg.ebrains.eu".
func NewConnector(host string, logger *slog.Logger, opts ...Option) *Connector {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	c := &Connector{
		base:   strings.TrimSuffix(base, "/") + "/v3",
		logger: logger.With("module", "kgcore"),
		tracer: otelhelper.Noop(),
		client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ForToken returns a store acting with the given bearer token.
func (c *Connector) ForToken(token string) kg.Store {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.client)

	return &Store{
		conn:   c,
		client: oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})),
	}
}

// HealthCheck verifies the API host answers. Any response below 500 counts,
// since the request carries no token.
func (c *Connector) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/users/me", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", kg.ErrUpstream, err)
	}

	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: health check returned %d", kg.ErrUpstream, resp.StatusCode)
	}

	return nil
}

// Store is a kg.Store backed by the KG core API.
type Store struct {
	conn   *Connector
	client *http.Client
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func stage(scope kg.Scope) string {
	if scope == kg.ScopeReleased {
		return "RELEASED"
	}

	return "IN_PROGRESS"
}

func (s *Store) do(ctx context.Context, method, path string, query url.Values, body any, attrs ...attribute.KeyValue) (*envelope, error) {
	attrs = append(attrs,
		attribute.String(otelhelper.KGMethodKey, method),
		attribute.String("url.path", path),
	)

	if st := query.Get("stage"); st != "" {
		attrs = append(attrs, attribute.String(otelhelper.KGStageKey, st))
	}

	ctx, span := otelhelper.StartSpan(ctx, s.conn.tracer, "kgcore."+strings.ToLower(method), attrs...)
	defer span.End()

	endpoint := s.conn.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, otelhelper.SetError(span, fmt.Errorf("failed to marshal request body: %w", err))
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, otelhelper.SetError(span, err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("%w: %w", kg.ErrUpstream, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("%w: %w", kg.ErrUpstream, err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, kg.ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		s.conn.logger.WarnContext(ctx, "knowledge graph request failed",
			"method", method, "path", path, "status", resp.StatusCode, "body", truncate(string(raw), 500))

		return nil, otelhelper.SetError(span, fmt.Errorf("%w: %s %s returned %d", kg.ErrUpstream, method, path, resp.StatusCode))
	}

	var env envelope

	if len(bytes.TrimSpace(raw)) == 0 {
		return &env, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&env); err != nil {
		return nil, otelhelper.SetError(span, fmt.Errorf("%w: invalid response: %w", kg.ErrUpstream, err))
	}

	return &env, nil
}

func decodeDoc(raw json.RawMessage) (map[string]any, error) {
	var doc map[string]any

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func decodeDocs(raw json.RawMessage) ([]map[string]any, error) {
	var docs []map[string]any

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&docs); err != nil {
		return nil, err
	}

	return docs, nil
}

func (s *Store) Get(ctx context.Context, id string, scope kg.Scope) (kg.Node, error) {
	uuid := kg.UUIDFromURI(id)

	env, err := s.do(ctx, http.MethodGet, "/instances/"+uuid, url.Values{"stage": {stage(scope)}}, nil,
		attribute.String(otelhelper.InstanceIDKey, uuid))
	if err != nil {
		return nil, &kg.InstanceError{Op: "get", ID: uuid, Err: err}
	}

	doc, err := decodeDoc(env.Data)
	if err != nil {
		return nil, &kg.InstanceError{Op: "get", ID: uuid, Err: err}
	}

	return kg.Decode(doc)
}

func (s *Store) Resolve(ctx context.Context, link *kg.Link, scope kg.Scope) (kg.Node, error) {
	return kg.ResolveLink(ctx, link, scope, s.Get)
}

func (s *Store) Save(ctx context.Context, node kg.Node, opts kg.SaveOptions) error {
	return kg.SaveTree(ctx, node, opts, s.write)
}

func (s *Store) write(ctx context.Context, node kg.Node, opts kg.SaveOptions) error {
	meta := node.Instance()

	doc, err := kg.Encode(node)
	if err != nil {
		return err
	}

	delete(doc, "@id")

	path := "/instances/" + meta.UUID()
	attrs := []attribute.KeyValue{
		attribute.String(otelhelper.InstanceIDKey, meta.UUID()),
		attribute.String(otelhelper.KGTypeKey, node.Type()),
	}

	switch {
	case !meta.Persisted():
		_, err = s.do(ctx, http.MethodPost, path, url.Values{"space": {opts.Space}}, doc, attrs...)
	case opts.Replace:
		_, err = s.do(ctx, http.MethodPut, path, nil, doc, attrs...)
	default:
		_, err = s.do(ctx, http.MethodPatch, path, nil, doc, attrs...)
	}

	if err != nil {
		return &kg.InstanceError{Op: "save", ID: meta.ID, Err: err}
	}

	if meta.Space == "" {
		meta.Space = opts.Space
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, node kg.Node) error {
	meta := node.Instance()

	_, err := s.do(ctx, http.MethodDelete, "/instances/"+meta.UUID(), nil, nil,
		attribute.String(otelhelper.InstanceIDKey, meta.UUID()),
		attribute.String(otelhelper.KGTypeKey, node.Type()),
	)
	if err != nil {
		return &kg.InstanceError{Op: "delete", ID: meta.ID, Err: err}
	}

	return nil
}

func (s *Store) List(ctx context.Context, opts kg.ListOptions) ([]kg.Node, error) {
	docs, _, err := s.list(ctx, opts)
	if err != nil {
		return nil, err
	}

	nodes := make([]kg.Node, 0, len(docs))

	for _, doc := range docs {
		node, err := s.instance(ctx, doc, opts.Scope)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// instance decodes a list entry. Query results only carry identifiers, so
// those are loaded in full.
func (s *Store) instance(ctx context.Context, doc map[string]any, scope kg.Scope) (kg.Node, error) {
	if kg.DocumentType(doc) != "" {
		return kg.Decode(doc)
	}

	id, _ := doc[queryVocab+"id"].(string)

	return s.Get(ctx, id, scope)
}

func (s *Store) Count(ctx context.Context, opts kg.ListOptions) (int, error) {
	opts.From, opts.Size = 0, 1

	_, total, err := s.list(ctx, opts)

	return total, err
}

func (s *Store) list(ctx context.Context, opts kg.ListOptions) ([]map[string]any, int, error) {
	query := url.Values{
		"stage": {stage(opts.Scope)},
		"from":  {strconv.Itoa(opts.From)},
	}

	if opts.Size > 0 {
		query.Set("size", strconv.Itoa(opts.Size))
	}

	if opts.Space != "" {
		query.Set("space", opts.Space)
	}

	var (
		env *envelope
		err error
	)

	if len(opts.Filters) == 0 {
		query.Set("type", opts.Type)
		env, err = s.do(ctx, http.MethodGet, "/instances", query, nil, attribute.String(otelhelper.KGTypeKey, opts.Type))
	} else {
		query.Set("returnTotalResults", "true")
		env, err = s.do(ctx, http.MethodPost, "/queries", query, buildQuery(opts), attribute.String(otelhelper.KGTypeKey, opts.Type))
	}

	if err != nil {
		return nil, 0, &kg.InstanceError{Op: "list", Err: err}
	}

	docs, err := decodeDocs(env.Data)
	if err != nil {
		return nil, 0, &kg.InstanceError{Op: "list", Err: err}
	}

	return docs, env.Total, nil
}

// buildQuery renders a dynamic query returning the identifiers of instances
// matching every filter.
func buildQuery(opts kg.ListOptions) map[string]any {
	structure := []map[string]any{
		{"propertyName": "query:id", "path": "@id"},
	}

	for i, f := range opts.Filters {
		path := make([]any, 0, len(f.Path)+1)
		for _, segment := range f.Path {
			path = append(path, kg.VocabPrefix+segment)
		}

		value := f.Value
		if isIdentifier(value) {
			path = append(path, "@id")
			value = kg.URIFromUUID(value)
		}

		structure = append(structure, map[string]any{
			"propertyName": fmt.Sprintf("query:f%d", i),
			"path":         path,
			"required":     true,
			"filter":       map[string]any{"op": "EQUALS", "value": value},
		})
	}

	return map[string]any{
		"@context": map[string]any{
			"@vocab":       "https://core.kg.ebrains.eu/vocab/query/",
			"query":        queryVocab,
			"propertyName": map[string]any{"@id": "propertyName", "@type": "@id"},
			"path":         map[string]any{"@id": "path", "@type": "@id"},
		},
		"meta": map[string]any{
			"type":          opts.Type,
			"responseVocab": queryVocab,
		},
		"structure": structure,
	}
}

func isIdentifier(value string) bool {
	if strings.HasPrefix(value, kg.InstancePrefix) {
		return true
	}

	// bare UUID
	return len(value) == 36 && strings.Count(value, "-") == 4
}

func (s *Store) Account(ctx context.Context) (*kg.Account, error) {
	env, err := s.do(ctx, http.MethodGet, "/users/me", nil, nil)
	if err != nil {
		return nil, &kg.InstanceError{Op: "account", Err: err}
	}

	doc, err := decodeDoc(env.Data)
	if err != nil {
		return nil, &kg.InstanceError{Op: "account", Err: err}
	}

	return &kg.Account{
		Username:   text(doc[schemaAltName]),
		GivenName:  text(doc[schemaGivenName]),
		FamilyName: text(doc[schemaFamilyName]),
	}, nil
}

func (s *Store) Spaces(ctx context.Context) ([]string, error) {
	env, err := s.do(ctx, http.MethodGet, "/spaces", url.Values{"permissions": {"false"}, "size": {"1000"}}, nil)
	if err != nil {
		return nil, &kg.InstanceError{Op: "spaces", Err: err}
	}

	docs, err := decodeDocs(env.Data)
	if err != nil {
		return nil, &kg.InstanceError{Op: "spaces", Err: err}
	}

	spaces := make([]string, 0, len(docs))

	for _, doc := range docs {
		name := text(doc[schemaIdentifier])
		if name == "" {
			name = text(doc[schemaName])
		}

		if name != "" {
			spaces = append(spaces, name)
		}
	}

	return spaces, nil
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
