package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ebrains-prov/provenance-api/pkg/channels/gochannel"
	"github.com/ebrains-prov/provenance-api/pkg/eventbus"
	"github.com/ebrains-prov/provenance-api/pkg/events"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/kg/file"
	"github.com/ebrains-prov/provenance-api/pkg/mocks"
	"github.com/ebrains-prov/provenance-api/pkg/testutil"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, conn kg.Connector) (*fiber.App, eventbus.EventBus) {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, nil)
	t.Cleanup(func() { _ = bus.Close() })

	gate := new(mocks.MockGate)
	gate.On("MayModify", mock.Anything, kg.MySpace, mock.Anything).Return(true, nil)

	if conn == nil {
		conn = testutil.NewConnector(t)
	}

	api := NewAPI(slog.Default(), conn, testutil.Vocab(), gate, bus, nil, nil)

	return api.App(), bus
}

func get(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "EBRAINS Provenance API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, body := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, _ = get(t, app, "/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_ReadinessFailsWithoutStore(t *testing.T) {
	missing := file.NewConnector(filepath.Join(t.TempDir(), "missing"), kg.StaticAccount(testutil.Account))
	app, _ := setupTestApp(t, missing)

	status, _ := get(t, app, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestAPI_RoutesEveryCollection(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	for _, target := range []string{
		"/simulations/", "/analyses/", "/visualisations/", "/optimisations/",
		"/datacopies/", "/computations/", "/workflows/", "/recipes/", "/statistics/spaces/",
	} {
		t.Run(target, func(t *testing.T) {
			status, _ := get(t, app, target)
			assert.Equal(t, http.StatusUnauthorized, status, "records need a bearer token")
		})
	}
}

func TestAPI_PublishesRecordEvents(t *testing.T) {
	app, bus := setupTestApp(t, nil)

	received := make(chan events.RecordChanged, 1)

	require.NoError(t, bus.Handle(events.RecordCreatedEvent, func(_ context.Context, event events.RecordChanged) error {
		received <- event
		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	payload, err := json.Marshal(testutil.CreateTestComputation())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/analyses/?space=myspace", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	select {
	case got := <-received:
		assert.Equal(t, "analyses", got.Kind)
		assert.Equal(t, kg.MySpace, got.Space)
		assert.NotEmpty(t, got.RecordID)
	case <-time.After(5 * time.Second):
		t.Fatal("record event was not delivered")
	}
}
