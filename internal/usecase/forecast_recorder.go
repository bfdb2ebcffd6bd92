package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"FerryCast/internal/domain/models"
	drepo "FerryCast/internal/domain/repository"
	"FerryCast/pkg/logger"
	xutil "FerryCast/pkg/util"
)

// ForecastRecorder routes audit events of served forecasts to the configured sink.
// Writes are best effort: a failing sink is logged and counted, never surfaced.
type ForecastRecorder struct {
	sink    drepo.ForecastSink
	metrics drepo.Metrics
	log     *logger.Logger
	backend string
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewForecastRecorder creates a recorder; a nil sink makes every call a no-op.
func NewForecastRecorder(
	sink drepo.ForecastSink,
	metrics drepo.Metrics,
	log *logger.Logger,
	backend string,
	timeout time.Duration,
) *ForecastRecorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ForecastRecorder{
		sink:    sink,
		metrics: metrics,
		log:     log,
		backend: backend,
		timeout: timeout,
	}
}

// Events builds one audit event per prediction.
func Events(mode string, res *models.ForecastResult, rng models.DateRange, version string, servedAt time.Time) []models.ForecastEvent {
	events := make([]models.ForecastEvent, 0, len(res.Predictions))
	for _, p := range res.Predictions {
		events = append(events, models.ForecastEvent{
			ID:        uuid.NewString(),
			Mode:      mode,
			Target:    res.Target,
			Date:      xutil.FormatDate(p.Date),
			Value:     p.Value,
			StartDate: xutil.FormatDate(rng.Start),
			EndDate:   xutil.FormatDate(rng.End),
			Lookback:  res.ModelInfo.Lookback,
			Version:   version,
			ServedAt:  servedAt.UTC(),
		})
	}
	return events
}

// Record writes events synchronously.
func (r *ForecastRecorder) Record(ctx context.Context, events []models.ForecastEvent) error {
	if r == nil || r.sink == nil || len(events) == 0 {
		return nil
	}

	start := time.Now()
	err := r.sink.Record(ctx, events)
	if r.metrics != nil {
		r.metrics.RecordSinkWrite(r.backend, len(events), err)
		r.metrics.RecordLatency("audit_"+r.backend, time.Since(start).Seconds())
	}
	if err != nil && r.log != nil {
		r.log.Error("record forecast events",
			logger.String("backend", r.backend),
			logger.Int("events", len(events)),
			logger.Error(err))
	}
	return err
}

// RecordAsync writes events in the background, detached from the request's cancellation.
func (r *ForecastRecorder) RecordAsync(ctx context.Context, events []models.ForecastEvent) {
	if r == nil || r.sink == nil || len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		_ = r.Record(ctx, events)
	}()
}

// Close waits for pending writes and closes the sink.
func (r *ForecastRecorder) Close() error {
	if r == nil || r.sink == nil {
		return nil
	}
	r.wg.Wait()
	return r.sink.Close()
}
