package models

import "time"

// DateRange is an inclusive calendar range. Start must not be after End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Prediction is one denormalized forecast for a calendar date.
type Prediction struct {
	Date  time.Time
	Value int
}

// CombinedPrediction joins the passenger and vehicle forecasts of one date.
type CombinedPrediction struct {
	Date      time.Time
	Pasajeros int
	Vehiculos int
}

// ModelInfo describes the model that produced a forecast.
type ModelInfo struct {
	ModelType string
	Target    string
	Lookback  int
}

// FeatureRows maps a YYYY-MM-DD date to the aligned feature values of that row.
type FeatureRows map[string]map[string]float64

// ForecastResult is the outcome of one single-target request.
type ForecastResult struct {
	Target      string
	Predictions []Prediction
	ModelInfo   ModelInfo
	Features    FeatureRows // nil unless requested
}

// CombinedResult merges the passenger and vehicle results of one request.
type CombinedResult struct {
	Predictions []CombinedPrediction
	ModelInfo   map[string]ModelInfo
	Features    map[string]FeatureRows
}

// ForecastEvent is the audit record emitted for every served prediction.
type ForecastEvent struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Target    string    `json:"target"`
	Date      string    `json:"date"`
	Value     int       `json:"value"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Lookback  int       `json:"lookback"`
	Version   string    `json:"artifacts_version"`
	ServedAt  time.Time `json:"served_at"`
}
