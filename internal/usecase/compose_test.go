package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/services/features"
)

func TestCombineDateUnion(t *testing.T) {
	d1 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	d2, d3 := d1.AddDate(0, 0, 1), d1.AddDate(0, 0, 2)

	got := Combine(
		[]models.Prediction{{Date: d2, Value: 20}, {Date: d1, Value: 10}},
		[]models.Prediction{{Date: d2, Value: 5}, {Date: d3, Value: 7}},
	)
	assert.Equal(t, []models.CombinedPrediction{
		{Date: d1, Pasajeros: 10, Vehiculos: 0},
		{Date: d2, Pasajeros: 20, Vehiculos: 5},
		{Date: d3, Pasajeros: 0, Vehiculos: 7},
	}, got)
}

func TestCombineEmpty(t *testing.T) {
	assert.Empty(t, Combine(nil, nil))
}

func TestComposeFeatures(t *testing.T) {
	d1 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	a := features.Matrix{Dates: []time.Time{d1, d2}, Columns: []string{"x", "y"}, Values: [][]float64{{1, 2}, {3, 4}}}
	b := features.Matrix{Dates: []time.Time{d2}, Columns: []string{"x", "y"}, Values: [][]float64{{5, 6}}}

	rows := ComposeFeatures(a, b)
	assert.Equal(t, models.FeatureRows{
		"2025-05-01": {"x": 1, "y": 2},
		"2025-05-02": {"x": 5, "y": 6},
	}, rows)
}
