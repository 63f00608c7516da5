package kgcore

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

type fakeKG struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeKG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})
	f.mu.Unlock()

	if f.handler != nil {
		f.handler(w, r)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"data": {}}`))
}

func newStore(t *testing.T, fake *fakeKG) kg.Store {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return NewConnector(server.URL, slog.Default()).ForToken("secret-token")
}

func TestStore_Get(t *testing.T) {
	fake := &fakeKG{handler: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {
			"@id": "https://kg.ebrains.eu/api/instances/3e2d1c0b-0a9f-4e8d-b7c6-a5f4e3d2c1b0",
			"@type": ["https://openminds.ebrains.eu/core/Person"],
			"https://core.kg.ebrains.eu/vocab/meta/space": "collab-foo",
			"https://openminds.ebrains.eu/vocab/givenName": "Alain",
			"https://openminds.ebrains.eu/vocab/familyName": "Destexhe"
		}}`))
	}}
	store := newStore(t, fake)

	node, err := store.Get(t.Context(), "3e2d1c0b-0a9f-4e8d-b7c6-a5f4e3d2c1b0", kg.ScopeInProgress)
	require.NoError(t, err)

	person, ok := node.(*kg.Person)
	require.True(t, ok)
	assert.Equal(t, "Alain Destexhe", person.FullName())
	assert.Equal(t, "collab-foo", person.Space)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/v3/instances/3e2d1c0b-0a9f-4e8d-b7c6-a5f4e3d2c1b0", fake.requests[0].path)
	assert.Equal(t, "stage=IN_PROGRESS", fake.requests[0].query)
	assert.Equal(t, "Bearer secret-token", fake.requests[0].auth)
}

func TestStore_GetNotFound(t *testing.T) {
	fake := &fakeKG{handler: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}}
	store := newStore(t, fake)

	_, err := store.Get(t.Context(), "3e2d1c0b-0a9f-4e8d-b7c6-a5f4e3d2c1b0", kg.ScopeReleased)
	require.Error(t, err)
	assert.True(t, kg.IsNotFound(err))
	assert.Equal(t, "stage=RELEASED", fake.requests[0].query)
}

func TestStore_UpstreamError(t *testing.T) {
	fake := &fakeKG{handler: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}}
	store := newStore(t, fake)

	_, err := store.Spaces(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, kg.ErrUpstream)
}

func TestStore_SaveMethods(t *testing.T) {
	fake := &fakeKG{}
	store := newStore(t, fake)

	person := &kg.Person{GivenName: "Alain", FamilyName: "Destexhe"}
	require.NoError(t, store.Save(t.Context(), person, kg.SaveOptions{Space: "myspace"}))
	assert.Equal(t, "myspace", person.Space)

	require.NoError(t, store.Save(t.Context(), person, kg.SaveOptions{Space: "myspace", Replace: true}))
	require.NoError(t, store.Save(t.Context(), person, kg.SaveOptions{Space: "myspace"}))
	require.NoError(t, store.Delete(t.Context(), person))

	require.Len(t, fake.requests, 4)
	assert.Equal(t, http.MethodPost, fake.requests[0].method)
	assert.Equal(t, "space=myspace", fake.requests[0].query)
	assert.Equal(t, "/v3/instances/"+person.UUID(), fake.requests[0].path)
	assert.Equal(t, "Alain", fake.requests[0].body[kg.VocabPrefix+"givenName"])
	assert.Equal(t, http.MethodPut, fake.requests[1].method)
	assert.Equal(t, http.MethodPatch, fake.requests[2].method)
	assert.Equal(t, http.MethodDelete, fake.requests[3].method)
}

func TestStore_ListWithFilters(t *testing.T) {
	fake := &fakeKG{handler: func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data": [{"https://schema.hbp.eu/myQuery/id": "https://kg.ebrains.eu/api/instances/9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"}], "total": 1}`))
			return
		}

		_, _ = w.Write([]byte(`{"data": {
			"@id": "https://kg.ebrains.eu/api/instances/9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d",
			"@type": "https://openminds.ebrains.eu/computation/Simulation",
			"https://openminds.ebrains.eu/vocab/lookupLabel": "Simulation by Alain Destexhe",
			"https://openminds.ebrains.eu/vocab/startedAtTime": "2021-05-28T16:32:58Z"
		}}`))
	}}
	store := newStore(t, fake)

	nodes, err := store.List(t.Context(), kg.ListOptions{
		Type:    kg.TypeSimulation,
		Space:   "collab-foo",
		Scope:   kg.ScopeInProgress,
		Filters: []kg.Filter{{Path: []string{"environment", "hardware"}, Value: "0b5c8a4e-0a3f-4b5e-8e5d-6f1a2b3c4d5e"}},
		Size:    10,
	})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, kg.TypeSimulation, nodes[0].Type())

	require.Len(t, fake.requests, 2)
	query := fake.requests[0]
	assert.Equal(t, "/v3/queries", query.path)

	structure, ok := query.body["structure"].([]any)
	require.True(t, ok)
	require.Len(t, structure, 2)

	filter, ok := structure[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{kg.VocabPrefix + "environment", kg.VocabPrefix + "hardware", "@id"}, filter["path"])
}

func TestStore_Count(t *testing.T) {
	fake := &fakeKG{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [], "total": 42}`))
	}}
	store := newStore(t, fake)

	count, err := store.Count(t.Context(), kg.ListOptions{Type: kg.TypeWorkflowExecution, Space: "myspace", Scope: kg.ScopeAny})
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestStore_Account(t *testing.T) {
	fake := &fakeKG{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": {
			"http://schema.org/alternateName": "adavison",
			"http://schema.org/givenName": "Andrew",
			"http://schema.org/familyName": "Davison"
		}}`))
	}}
	store := newStore(t, fake)

	account, err := store.Account(t.Context())
	require.NoError(t, err)
	assert.Equal(t, &kg.Account{Username: "adavison", GivenName: "Andrew", FamilyName: "Davison"}, account)
}

func TestConnector_HealthCheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(server.Close)

	conn := NewConnector(server.URL, slog.Default())

	assert.NoError(t, conn.HealthCheck(t.Context()), "an unauthenticated answer still proves the host is up")

	status.Store(http.StatusServiceUnavailable)
	assert.ErrorIs(t, conn.HealthCheck(t.Context()), kg.ErrUpstream)
}

func TestStore_RequestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	server := httptest.NewServer(&fakeKG{})
	t.Cleanup(server.Close)

	store := NewConnector(server.URL, slog.Default(), WithTracer(provider.Tracer("test"))).ForToken("secret-token")

	_, _ = store.Get(t.Context(), "a9c3e6f2-3b6a-4d4e-9f7a-0c1d2e3f4a5b", kg.ScopeReleased)
	_, _ = store.List(t.Context(), kg.ListOptions{Type: kg.TypeSimulation, Scope: kg.ScopeInProgress})

	spans := rec.Ended()
	require.Len(t, spans, 2)

	attrs := func(i int) map[attribute.Key]string {
		out := map[attribute.Key]string{}
		for _, kv := range spans[i].Attributes() {
			out[kv.Key] = kv.Value.Emit()
		}

		return out
	}

	get := attrs(0)
	assert.Equal(t, "a9c3e6f2-3b6a-4d4e-9f7a-0c1d2e3f4a5b", get[otelhelper.InstanceIDKey])
	assert.Equal(t, "RELEASED", get[otelhelper.KGStageKey])
	assert.Equal(t, http.MethodGet, get[otelhelper.KGMethodKey])

	list := attrs(1)
	assert.Equal(t, kg.TypeSimulation, list[otelhelper.KGTypeKey])
	assert.Equal(t, "IN_PROGRESS", list[otelhelper.KGStageKey])
}
