package repository

import (
	"context"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/domain/repository"
)

// NopForecastSink discards events. It backs audit.backend "none".
type NopForecastSink struct{}

// NewNopForecastSink creates a sink that drops every event.
func NewNopForecastSink() repository.ForecastSink { return NopForecastSink{} }

func (NopForecastSink) Record(context.Context, []models.ForecastEvent) error { return nil }

func (NopForecastSink) Close() error { return nil }
