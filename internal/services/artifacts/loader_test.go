package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/domain/repository"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config_pasajeros.json", `{"lookback": 14}`)
	writeFile(t, dir, "scaler_pasajeros.json", `{"data_min": 0, "data_max": 1000}`)
	writeFile(t, dir, "scaler_vehiculos.json", `{"data_min_": [10], "data_max_": [210]}`)
	writeFile(t, dir, "feature_columns_pasajeros.json", `["is_weekend", "season_1", "dia_del_anio_sin"]`)
	writeFile(t, dir, "config_vehiculos.json", `{"feature_columns": ["weekday_sin", "weekday_cos"]}`)

	a, err := Load(dir, 7)
	require.NoError(t, err)
	assert.Equal(t, 14, a.Lookback)
	assert.Len(t, a.Version, 12)

	pas, err := a.Schema(repository.TargetPasajeros)
	require.NoError(t, err)
	assert.Equal(t, []string{"is_weekend", "season_1", "dia_del_anio_sin"}, pas.Columns())
	assert.Equal(t, 2, pas.Index()["dia_del_anio_sin"])
	assert.Equal(t, 14, pas.Lookback())

	veh, err := a.Schema(repository.TargetVehiculos)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekday_sin", "weekday_cos"}, veh.Columns())
	assert.InDelta(t, 110.0, veh.Scaler.Inverse(0.5), 1e-9)

	_, err = a.Schema(repository.Target("camiones"))
	assert.ErrorIs(t, err, models.ErrUnsupportedTarget)

	again, err := Load(dir, 7)
	require.NoError(t, err)
	assert.Equal(t, a.Version, again.Version)
}

func TestLoadDefaultLookback(t *testing.T) {
	dir := t.TempDir()
	for _, target := range []string{"pasajeros", "vehiculos"} {
		writeFile(t, dir, "scaler_"+target+".json", `{"data_min": 0, "data_max": 10}`)
		writeFile(t, dir, "feature_columns_"+target+".json", `["is_weekend"]`)
	}

	a, err := Load(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLookback, a.Lookback)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing scaler", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "feature_columns_pasajeros.json", `["a"]`)
		_, err := Load(dir, 7)
		assert.Error(t, err)
	})

	t.Run("duplicate columns", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "scaler_pasajeros.json", `{"data_min": 0, "data_max": 10}`)
		writeFile(t, dir, "feature_columns_pasajeros.json", `["a", "a"]`)
		_, err := Load(dir, 7)
		assert.ErrorContains(t, err, "duplicate column")
	})

	t.Run("no columns anywhere", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "scaler_pasajeros.json", `{"data_min": 0, "data_max": 10}`)
		_, err := Load(dir, 7)
		assert.ErrorContains(t, err, "feature_columns")
	})

	t.Run("zero width scaler", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "scaler_pasajeros.json", `{"data_min": 3, "data_max": 3}`)
		writeFile(t, dir, "feature_columns_pasajeros.json", `["a"]`)
		_, err := Load(dir, 7)
		assert.Error(t, err)
	})

	t.Run("bad lookback", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "config_pasajeros.json", `{"lookback": 0}`)
		writeFile(t, dir, "scaler_pasajeros.json", `{"data_min": 0, "data_max": 10}`)
		writeFile(t, dir, "feature_columns_pasajeros.json", `["a"]`)
		_, err := Load(dir, 7)
		assert.ErrorContains(t, err, "lookback")
	})
}

func TestStore(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Ready())
	_, err := s.Get()
	assert.ErrorIs(t, err, models.ErrArtifactsNotLoaded)

	a := &Artifacts{Lookback: 7, Version: "abc"}
	require.NoError(t, s.Set(a))
	assert.True(t, s.Ready())
	got, err := s.Get()
	require.NoError(t, err)
	assert.Same(t, a, got)

	assert.Error(t, s.Set(&Artifacts{}))
	assert.Error(t, NewStore().Set(nil))
}
