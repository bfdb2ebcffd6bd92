package service

import (
	"context"

	"FerryCast/internal/domain/repository"
)

// InferenceBackend submits a (samples, lookback, columns) tensor to the model
// serving the target and returns one normalized value per sample.
type InferenceBackend interface {
	Infer(ctx context.Context, target repository.Target, instances [][][]float64) ([]float64, error)
}
