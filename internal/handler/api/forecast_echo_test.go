package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FerryCast/internal/domain/models"
	drepo "FerryCast/internal/domain/repository"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/services/features"
	"FerryCast/internal/usecase"
)

type stubBackend struct {
	value float64
	err   error
	calls int
}

func (b *stubBackend) Infer(_ context.Context, _ drepo.Target, instances [][][]float64) ([]float64, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([]float64, len(instances))
	for i := range out {
		out[i] = b.value
	}
	return out, nil
}

func loadedStore(t *testing.T) *artifacts.Store {
	t.Helper()
	cols := []string{"mes_sin", "mes_cos", "is_weekend"}
	a := &artifacts.Artifacts{
		Schemas:  map[drepo.Target]*artifacts.Schema{},
		Lookback: 7,
		Version:  "0123456789ab",
		LoadedAt: time.Now(),
	}
	for target, hi := range map[drepo.Target]float64{drepo.TargetPasajeros: 1000, drepo.TargetVehiculos: 300} {
		s, err := artifacts.NewSchema(target, cols, artifacts.NewMinMaxScaler(0, hi), 7)
		require.NoError(t, err)
		a.Schemas[target] = s
	}
	store := artifacts.NewStore()
	require.NoError(t, store.Set(a))
	return store
}

func newTestEcho(store *artifacts.Store, backend *stubBackend) *echo.Echo {
	fc := usecase.NewForecaster(store, features.NewGenerator(nil), backend)
	e := echo.New()
	NewForecastEchoHandler(nil, fc, store).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

const singleDay = `{"start_date":"2025-05-07","end_date":"2025-05-07"}`

func TestPredictSingle(t *testing.T) {
	backend := &stubBackend{value: 0.42}
	e := newTestEcho(loadedStore(t), backend)

	rec := do(e, http.MethodPost, "/predict/pasajeros", singleDay)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.JSONEq(t, `{
		"predictions": [{"date": "2025-05-07", "pasajeros": 420}],
		"model_info": {"model_type": "LSTM Bidireccional", "target": "pasajeros", "lookback": 7}
	}`, string(env.Data))
	assert.Equal(t, 1, backend.calls)
}

func TestPredictSingleWithFeatures(t *testing.T) {
	e := newTestEcho(loadedStore(t), &stubBackend{value: 0.5})

	rec := do(e, http.MethodPost, "/predict/vehiculos",
		`{"start_date":"2025-05-07","end_date":"2025-05-07","include_features":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body models.ForecastResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.Len(t, body.Features, 7)
	assert.Contains(t, body.Features, "2025-05-07")
	assert.Contains(t, body.Features, "2025-05-01")
}

func TestPredictCombined(t *testing.T) {
	e := newTestEcho(loadedStore(t), &stubBackend{value: 0.1})

	rec := do(e, http.MethodPost, "/predict/combined", singleDay)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body models.CombinedResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, models.CombinedRow{Date: "2025-05-07", Pasajeros: 100, Vehiculos: 30}, body.Predictions[0])
	assert.Len(t, body.ModelInfo, 2)
}

func TestPredictDaily(t *testing.T) {
	backend := &stubBackend{value: 0.2}
	e := newTestEcho(loadedStore(t), backend)

	rec := do(e, http.MethodPost, "/predict/pasajeros/daily",
		`{"start_date":"2025-05-01","end_date":"2025-05-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Predictions []map[string]interface{} `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	require.Len(t, body.Predictions, 3)
	assert.Equal(t, "2025-05-01", body.Predictions[0]["date"])
	assert.Equal(t, float64(200), body.Predictions[2]["pasajeros"])
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		loaded bool
		err    error
		status int
		code   string
	}{
		{"unsupported model", "/predict/camiones", singleDay, true, nil, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"start after end", "/predict/pasajeros", `{"start_date":"2025-05-08","end_date":"2025-05-07"}`, true, nil, http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"missing end date", "/predict/pasajeros", `{"start_date":"2025-05-07"}`, true, nil, http.StatusBadRequest, "ERR_REQUIRED"},
		{"bad date format", "/predict/pasajeros", `{"start_date":"07/05/2025","end_date":"2025-05-07"}`, true, nil, http.StatusBadRequest, "ERR_DATETIME"},
		{"malformed json", "/predict/pasajeros", `{"start_date":`, true, nil, http.StatusBadRequest, "ERR_BIND"},
		{"not loaded", "/predict/pasajeros", singleDay, false, nil, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{"backend down", "/predict/pasajeros", singleDay, true, fmt.Errorf("%w: connection refused", models.ErrBackend), http.StatusBadGateway, "ERR_BAD_GATEWAY"},
		{"combined backend down", "/predict/combined", singleDay, true, fmt.Errorf("%w: timeout", models.ErrBackend), http.StatusBadGateway, "ERR_BAD_GATEWAY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := artifacts.NewStore()
			if tt.loaded {
				store = loadedStore(t)
			}
			backend := &stubBackend{value: 0.42, err: tt.err}
			e := newTestEcho(store, backend)

			rec := do(e, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			env := decode(t, rec)
			assert.Equal(t, tt.status, env.Status)
			var errs []map[string]interface{}
			require.NoError(t, json.Unmarshal(env.Data, &errs))
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.code, errs[0]["code"])

			if tt.err == nil {
				assert.Zero(t, backend.calls)
			}
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	empty := newTestEcho(artifacts.NewStore(), &stubBackend{})

	rec := do(empty, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","artifacts_loaded":false}`, rec.Body.String())

	rec = do(empty, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	loaded := newTestEcho(loadedStore(t), &stubBackend{})
	rec = do(loaded, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","artifacts_loaded":true,"artifacts_version":"0123456789ab","lookback":7}`, rec.Body.String())
}

func TestMapError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MapError(fmt.Errorf("%w: short window", models.ErrSchemaMismatch)).Status)
	assert.Equal(t, http.StatusGatewayTimeout, MapError(context.DeadlineExceeded).Status)
	assert.Equal(t, http.StatusInternalServerError, MapError(fmt.Errorf("boom")).Status)

	appErr := MapError(fmt.Errorf("%w: %q", models.ErrUnsupportedTarget, "camiones"))
	assert.Equal(t, "model", appErr.Field)
	assert.ErrorIs(t, appErr, models.ErrUnsupportedTarget)
}
