package usecase

import (
	"sort"
	"time"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/services/features"
)

// Combine joins both targets by date. A date missing on one side reads 0 there.
func Combine(pasajeros, vehiculos []models.Prediction) []models.CombinedPrediction {
	byDate := make(map[time.Time]*models.CombinedPrediction, len(pasajeros)+len(vehiculos))
	row := func(d time.Time) *models.CombinedPrediction {
		r, ok := byDate[d]
		if !ok {
			r = &models.CombinedPrediction{Date: d}
			byDate[d] = r
		}
		return r
	}
	for _, p := range pasajeros {
		row(p.Date).Pasajeros = p.Value
	}
	for _, v := range vehiculos {
		row(v.Date).Vehiculos = v.Value
	}

	out := make([]models.CombinedPrediction, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ComposeFeatures exposes the aligned matrices, keyed by date then column.
// Later matrices win when two share a date.
func ComposeFeatures(matrices ...features.Matrix) models.FeatureRows {
	rows := models.FeatureRows{}
	for _, m := range matrices {
		for date, r := range m.Rows() {
			rows[date] = r
		}
	}
	return rows
}
