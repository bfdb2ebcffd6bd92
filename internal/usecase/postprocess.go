package usecase

import (
	"fmt"
	"math"
	"time"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/services/artifacts"
)

// Denormalize maps normalized model outputs back to counts: inverse min-max,
// then rounding half away from zero. Negative counts are returned as they are.
func Denormalize(values []float64, scaler artifacts.Scaler) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(math.Round(scaler.Inverse(v)))
	}
	return out
}

// ZipWithDates pairs each value with the date it forecasts.
func ZipWithDates(dates []time.Time, values []int) ([]models.Prediction, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("%w: %d dates for %d predictions", models.ErrBackend, len(dates), len(values))
	}
	out := make([]models.Prediction, len(values))
	for i := range values {
		out[i] = models.Prediction{Date: dates[i], Value: values[i]}
	}
	return out, nil
}
