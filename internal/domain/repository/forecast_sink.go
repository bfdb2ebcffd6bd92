package repository

import (
	"context"

	"FerryCast/internal/domain/models"
)

// ForecastSink receives audit events for served forecasts.
type ForecastSink interface {
	Record(ctx context.Context, events []models.ForecastEvent) error
	Close() error
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordRequest(mode, target, status string)
	RecordError(kind string)
	RecordBackendLatency(target string, seconds float64)
	RecordNegativePrediction(target string)
	RecordCache(result string)
	RecordSinkWrite(backend string, events int, err error)
	SetArtifactsLoaded(loaded bool)
	RecordLatency(op string, seconds float64)
}
