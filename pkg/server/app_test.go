package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "FerryCast/internal/domain/repository"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/usecase"
	"FerryCast/pkg/cache"
	"FerryCast/pkg/config"
	xhttp "FerryCast/pkg/http"
	applogger "FerryCast/pkg/logger"
	"FerryCast/pkg/metrics"
)

func testArtifacts(t *testing.T) *artifacts.Artifacts {
	t.Helper()
	s, err := artifacts.NewSchema(drepo.TargetPasajeros, []string{"mes_sin"}, artifacts.NewMinMaxScaler(0, 1000), 7)
	require.NoError(t, err)
	return &artifacts.Artifacts{
		Schemas:  map[drepo.Target]*artifacts.Schema{drepo.TargetPasajeros: s},
		Lookback: 7,
		Version:  "feedc0ffee00",
	}
}

func newTestApp(t *testing.T, load ArtifactLoader) (*App, *artifacts.Store) {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.ShutdownTimeout = time.Second
	store := artifacts.NewStore()
	log := applogger.Nop()
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithLogger(log))
	rec := usecase.NewForecastRecorder(nil, metrics.Nop{}, log, config.AuditNone, time.Second)

	app := New(cfg, log, store, metrics.Nop{}, srv, rec, cache.NewMemoryCache())
	app.load = load
	return app, store
}

func TestRunContextLoadsArtifactsAndStops(t *testing.T) {
	art := testArtifacts(t)
	app, store := newTestApp(t, func(string, int) (*artifacts.Artifacts, error) { return art, nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.Eventually(t, store.Ready, 2*time.Second, 10*time.Millisecond)
	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "feedc0ffee00", got.Version)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestRunContextStaysNotReadyWhileLoadFails(t *testing.T) {
	var calls atomic.Int32
	app, store := newTestApp(t, func(string, int) (*artifacts.Artifacts, error) {
		calls.Add(1)
		return nil, errors.New("scaler_pasajeros.json: no such file")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, store.Ready())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}
