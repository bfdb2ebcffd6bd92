package artifacts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerInverse(t *testing.T) {
	s := NewMinMaxScaler(0, 1000)
	assert.InDelta(t, 420.0, s.Inverse(0.42), 1e-9)
	assert.InDelta(t, 0.42, s.Transform(420), 1e-9)

	shifted := Scaler{DataMin: 100, DataMax: 300, FeatureRange: [2]float64{-1, 1}}
	for _, v := range []float64{100, 150, 237.5, 300} {
		assert.InDelta(t, v, shifted.Inverse(shifted.Transform(v)), 1e-9)
	}
}

func TestScalerUnmarshal(t *testing.T) {
	var plain Scaler
	require.NoError(t, json.Unmarshal([]byte(`{"data_min": 12, "data_max": 4800}`), &plain))
	assert.Equal(t, NewMinMaxScaler(12, 4800), plain)

	var sk Scaler
	require.NoError(t, json.Unmarshal([]byte(`{"data_min_": [5], "data_max_": [50], "feature_range": [0, 2]}`), &sk))
	assert.Equal(t, Scaler{DataMin: 5, DataMax: 50, FeatureRange: [2]float64{0, 2}}, sk)

	var bad Scaler
	assert.Error(t, json.Unmarshal([]byte(`{"data_min_": [1, 2], "data_max_": [3, 4]}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"data_min": 1, "data_max": 2, "feature_range": [1]}`), &bad))
}

func TestScalerValidate(t *testing.T) {
	assert.NoError(t, NewMinMaxScaler(0, 1).Validate())
	assert.Error(t, NewMinMaxScaler(5, 5).Validate())
	assert.Error(t, Scaler{DataMin: 0, DataMax: 1, FeatureRange: [2]float64{1, 1}}.Validate())
}
