package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/domain/repository"
	"FerryCast/pkg/config"
	xhttp "FerryCast/pkg/http"
	"FerryCast/pkg/logger"
)

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
}

// TFServingClient calls the TensorFlow Serving REST predict endpoint of each target.
type TFServingClient struct {
	*HTTPServiceBase
	endpoints map[repository.Target]string
	metrics   repository.Metrics
	log       *logger.Logger
}

// NewTFServingClient builds a client from the backend section of cfg.
func NewTFServingClient(cfg *config.Config, m repository.Metrics, log *logger.Logger, opts ...xhttp.ClientOption) *TFServingClient {
	return &TFServingClient{
		HTTPServiceBase: NewHTTPServiceBase(RetryPolicy{
			MaxAttempts:    cfg.Backend.MaxAttempts,
			AttemptTimeout: cfg.Backend.Timeout,
			InitialBackoff: cfg.Backend.BackoffInitial,
			MaxBackoff:     cfg.Backend.BackoffMax,
		}, opts...),
		endpoints: map[repository.Target]string{
			repository.TargetPasajeros: cfg.Backend.PasajerosURL,
			repository.TargetVehiculos: cfg.Backend.VehiculosURL,
		},
		metrics: m,
		log:     log,
	}
}

// Infer returns one normalized prediction per instance.
func (c *TFServingClient) Infer(ctx context.Context, target repository.Target, instances [][][]float64) ([]float64, error) {
	url, ok := c.endpoints[target]
	if !ok || url == "" {
		return nil, fmt.Errorf("%w: no backend for %q", models.ErrUnsupportedTarget, target)
	}

	start := time.Now()
	var resp predictResponse
	attempts, err := c.PostJSONWithRetry(ctx, url, predictRequest{Instances: instances}, &resp)
	if c.metrics != nil {
		c.metrics.RecordBackendLatency(string(target), time.Since(start).Seconds())
	}
	if err != nil {
		if c.log != nil {
			c.log.Warn("model server request failed",
				logger.String("target", string(target)),
				logger.Int("attempts", attempts),
				logger.Error(err))
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrBackend, target, err)
	}

	values, err := parsePredictions(resp, len(instances))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrBackend, target, err)
	}
	return values, nil
}

// parsePredictions accepts each prediction either as a bare number or a one-element array.
func parsePredictions(resp predictResponse, want int) ([]float64, error) {
	if resp.Predictions == nil {
		return nil, fmt.Errorf("response has no predictions")
	}
	if len(resp.Predictions) != want {
		return nil, fmt.Errorf("got %d predictions for %d instances", len(resp.Predictions), want)
	}

	out := make([]float64, len(resp.Predictions))
	for i, raw := range resp.Predictions {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			out[i] = v
			continue
		}
		var arr []float64
		if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
			return nil, fmt.Errorf("prediction %d is not a number: %s", i, raw)
		}
		out[i] = arr[0]
	}
	return out, nil
}
