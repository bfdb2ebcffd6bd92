package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FerryCast/internal/domain/models"
	drepo "FerryCast/internal/domain/repository"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/services/features"
	"FerryCast/pkg/cache"
	"FerryCast/pkg/logger"
)

type fakeBackend struct {
	mu     sync.Mutex
	calls  map[drepo.Target]int
	shapes [][3]int
	values map[drepo.Target]float64
	errs   map[drepo.Target]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:  map[drepo.Target]int{},
		values: map[drepo.Target]float64{drepo.TargetPasajeros: 0.42, drepo.TargetVehiculos: 0.1},
		errs:   map[drepo.Target]error{},
	}
}

func (b *fakeBackend) Infer(ctx context.Context, t drepo.Target, instances [][][]float64) ([]float64, error) {
	b.mu.Lock()
	b.calls[t]++
	b.shapes = append(b.shapes, [3]int{len(instances), len(instances[0]), len(instances[0][0])})
	err := b.errs[t]
	v := b.values[t]
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	out := make([]float64, len(instances))
	for i := range out {
		out[i] = v + float64(i)/1000
	}
	return out, nil
}

func (b *fakeBackend) totalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

type captureSink struct {
	mu     sync.Mutex
	events []models.ForecastEvent
	closed bool
}

func (s *captureSink) Record(_ context.Context, events []models.ForecastEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *captureSink) Close() error {
	s.closed = true
	return nil
}

// passengerColumns is the sorted generated column set plus one column serving never produces.
func passengerColumns() []string {
	v := features.NewGenerator(nil).Generate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cols := []string{"is_temporada_alta"}
	for k := range v {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func loadedStore(t *testing.T, lookback int) *artifacts.Store {
	t.Helper()
	pas, err := artifacts.NewSchema(drepo.TargetPasajeros, passengerColumns(), artifacts.NewMinMaxScaler(0, 1000), lookback)
	require.NoError(t, err)
	veh, err := artifacts.NewSchema(drepo.TargetVehiculos, passengerColumns()[:20], artifacts.NewMinMaxScaler(0, 300), lookback)
	require.NoError(t, err)

	s := artifacts.NewStore()
	require.NoError(t, s.Set(&artifacts.Artifacts{
		Schemas:  map[drepo.Target]*artifacts.Schema{drepo.TargetPasajeros: pas, drepo.TargetVehiculos: veh},
		Lookback: lookback,
		Version:  "test",
	}))
	return s
}

func req(start, end string, include bool) models.ForecastRequest {
	return models.ForecastRequest{StartDate: start, EndDate: end, IncludeFeatures: include}
}

func TestPredictScenario(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	res, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", true))
	require.NoError(t, err)

	require.Len(t, res.Predictions, 1)
	assert.Equal(t, "2025-05-07", res.Predictions[0].Date.Format("2006-01-02"))
	assert.Equal(t, 420, res.Predictions[0].Value)
	assert.Equal(t, models.ModelInfo{ModelType: DefaultModelType, Target: "pasajeros", Lookback: 7}, res.ModelInfo)
	assert.Equal(t, [][3]int{{1, 7, 34}}, backend.shapes)

	require.Len(t, res.Features, 7)
	for d := 1; d <= 7; d++ {
		row, ok := res.Features[fmt.Sprintf("2025-05-%02d", d)]
		require.True(t, ok)
		assert.Len(t, row, 34)
		assert.Zero(t, row["is_temporada_alta"])
	}
}

func TestPredictRangeAnchorsAtEnd(t *testing.T) {
	f := NewForecaster(loadedStore(t, 7), nil, newFakeBackend())

	res, err := f.Predict(context.Background(), "pasajeros", req("2025-05-01", "2025-05-20", false))
	require.NoError(t, err)
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, "2025-05-20", res.Predictions[0].Date.Format("2006-01-02"))
	assert.Nil(t, res.Features)
}

func TestPredictWideRangeBuildsOnlyLookbackRows(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend)
	wide := req("0001-01-01", "9999-12-31", true)

	res, err := f.Predict(context.Background(), "pasajeros", wide)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, "9999-12-31", res.Predictions[0].Date.Format("2006-01-02"))
	assert.Equal(t, [][3]int{{1, 7, 34}}, backend.shapes)
	require.Len(t, res.Features, 7)
	assert.Contains(t, res.Features, "9999-12-25")

	allocs := testing.AllocsPerRun(3, func() {
		_, _ = f.Predict(context.Background(), "pasajeros", wide)
	})
	assert.Less(t, allocs, 5000.0)
}

func TestPredictUnsupportedTarget(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	_, err := f.Predict(context.Background(), "camiones", req("2025-05-07", "2025-05-07", false))
	assert.ErrorIs(t, err, models.ErrUnsupportedTarget)
	assert.Zero(t, backend.totalCalls())
}

func TestPredictNotLoaded(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(artifacts.NewStore(), nil, backend)

	_, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", false))
	assert.ErrorIs(t, err, models.ErrArtifactsNotLoaded)

	_, err = f.PredictCombined(context.Background(), req("2025-05-07", "2025-05-07", false))
	assert.ErrorIs(t, err, models.ErrArtifactsNotLoaded)
	assert.Zero(t, backend.totalCalls())
}

func TestPredictInvalidRange(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	for _, r := range []models.ForecastRequest{
		req("2025-05-08", "2025-05-07", false),
		req("07/05/2025", "2025-05-07", false),
	} {
		_, err := f.Predict(context.Background(), "vehiculos", r)
		assert.ErrorIs(t, err, models.ErrInvalidRange)
	}
	_, err := f.PredictCombined(context.Background(), req("2025-05-08", "2025-05-07", false))
	assert.ErrorIs(t, err, models.ErrInvalidRange)
	assert.Zero(t, backend.totalCalls())
}

func TestPredictBackendError(t *testing.T) {
	backend := newFakeBackend()
	backend.errs[drepo.TargetPasajeros] = fmt.Errorf("%w: boom", models.ErrBackend)
	f := NewForecaster(loadedStore(t, 7), nil, backend, WithLogger(logger.Nop()))

	_, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", false))
	assert.ErrorIs(t, err, models.ErrBackend)
	assert.Equal(t, "backend", ErrorKind(err))
}

func TestPredictNegativeNotClamped(t *testing.T) {
	backend := newFakeBackend()
	backend.values[drepo.TargetPasajeros] = -0.01
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	res, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", false))
	require.NoError(t, err)
	assert.Equal(t, -10, res.Predictions[0].Value)
}

func TestPredictCombined(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	res, err := f.PredictCombined(context.Background(), req("2025-05-07", "2025-05-07", true))
	require.NoError(t, err)

	require.Len(t, res.Predictions, 1)
	p := res.Predictions[0]
	assert.Equal(t, "2025-05-07", p.Date.Format("2006-01-02"))
	assert.Equal(t, 420, p.Pasajeros)
	assert.Equal(t, 30, p.Vehiculos)
	assert.Equal(t, 7, res.ModelInfo["vehiculos"].Lookback)
	assert.Len(t, res.Features, 2)
	assert.Len(t, res.Features["vehiculos"]["2025-05-07"], 20)
	assert.Equal(t, 2, backend.totalCalls())
}

func TestPredictCombinedFailsWithEitherTarget(t *testing.T) {
	backend := newFakeBackend()
	backend.errs[drepo.TargetVehiculos] = fmt.Errorf("%w: unreachable", models.ErrBackend)
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	_, err := f.PredictCombined(context.Background(), req("2025-05-07", "2025-05-07", false))
	assert.ErrorIs(t, err, models.ErrBackend)
}

func TestPredictCombinedFailureRecordsNothing(t *testing.T) {
	backend := newFakeBackend()
	backend.errs[drepo.TargetVehiculos] = fmt.Errorf("%w: unreachable", models.ErrBackend)
	sink := &captureSink{}
	rec := NewForecastRecorder(sink, nil, logger.Nop(), "capture", time.Second)
	mc := cache.NewMemoryCache()
	defer mc.Close()
	f := NewForecaster(loadedStore(t, 7), nil, backend, WithRecorder(rec), WithCache(mc, time.Minute))

	_, err := f.PredictCombined(context.Background(), req("2025-05-07", "2025-05-07", false))
	require.ErrorIs(t, err, models.ErrBackend)
	assert.Zero(t, mc.Len())

	backend.mu.Lock()
	delete(backend.errs, drepo.TargetVehiculos)
	backend.mu.Unlock()
	_, err = f.PredictCombined(context.Background(), req("2025-05-07", "2025-05-07", false))
	require.NoError(t, err)
	assert.Equal(t, 2, mc.Len())
	require.NoError(t, rec.Close())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 2)
	targets := []string{sink.events[0].Target, sink.events[1].Target}
	assert.ElementsMatch(t, []string{"pasajeros", "vehiculos"}, targets)
}

func TestPredictDaily(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend)

	res, err := f.PredictDaily(context.Background(), "pasajeros", req("2025-05-05", "2025-05-07", true))
	require.NoError(t, err)

	require.Len(t, res.Predictions, 3)
	for i, want := range []string{"2025-05-05", "2025-05-06", "2025-05-07"} {
		assert.Equal(t, want, res.Predictions[i].Date.Format("2006-01-02"))
	}
	assert.Equal(t, []int{420, 421, 422}, []int{res.Predictions[0].Value, res.Predictions[1].Value, res.Predictions[2].Value})
	assert.Equal(t, [][3]int{{3, 7, 34}}, backend.shapes)
	// anchors 05-05..05-07 with lookback 7 cover 04-29..05-07
	assert.Len(t, res.Features, 9)
}

func TestPredictDailySpanLimit(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecaster(loadedStore(t, 7), nil, backend, WithMaxDailySpan(5))

	_, err := f.PredictDaily(context.Background(), "pasajeros", req("2025-05-01", "2025-05-06", false))
	assert.ErrorIs(t, err, models.ErrInvalidRange)
	assert.Zero(t, backend.totalCalls())
}

func TestPredictUsesCache(t *testing.T) {
	backend := newFakeBackend()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	f := NewForecaster(loadedStore(t, 7), nil, backend, WithCache(mc, time.Minute))

	first, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", true))
	require.NoError(t, err)
	second, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", true))
	require.NoError(t, err)

	assert.Equal(t, 1, backend.totalCalls())
	assert.Equal(t, first.Predictions[0].Value, second.Predictions[0].Value)
	assert.True(t, first.Predictions[0].Date.Equal(second.Predictions[0].Date))
	assert.Equal(t, first.Features, second.Features)

	_, err = f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", false))
	require.NoError(t, err)
	assert.Equal(t, 2, backend.totalCalls())
}

type failingCache struct{ cache.Service }

func (failingCache) Get(context.Context, string, interface{}) error {
	return errors.New("redis down")
}

func (failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis down")
}

func TestPredictIgnoresCacheFailures(t *testing.T) {
	f := NewForecaster(loadedStore(t, 7), nil, newFakeBackend(), WithCache(failingCache{}, time.Minute))

	res, err := f.Predict(context.Background(), "pasajeros", req("2025-05-07", "2025-05-07", false))
	require.NoError(t, err)
	assert.Equal(t, 420, res.Predictions[0].Value)
}

func TestPredictRecordsEvents(t *testing.T) {
	sink := &captureSink{}
	rec := NewForecastRecorder(sink, nil, logger.Nop(), "capture", time.Second)
	f := NewForecaster(loadedStore(t, 7), nil, newFakeBackend(), WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.PredictCombined(ctx, req("2025-05-07", "2025-05-07", false))
	require.NoError(t, err)
	cancel()
	require.NoError(t, rec.Close())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 2)
	assert.True(t, sink.closed)
	for _, ev := range sink.events {
		assert.Equal(t, drepo.ModeCombined, ev.Mode)
		assert.Equal(t, "2025-05-07", ev.Date)
		assert.Equal(t, "test", ev.Version)
		assert.NotEmpty(t, ev.ID)
	}
}
