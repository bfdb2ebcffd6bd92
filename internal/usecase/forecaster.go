package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FerryCast/internal/domain/models"
	drepo "FerryCast/internal/domain/repository"
	domsvc "FerryCast/internal/domain/service"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/services/features"
	"FerryCast/pkg/cache"
	"FerryCast/pkg/logger"
	"FerryCast/pkg/metrics"
	xutil "FerryCast/pkg/util"
)

// Request modes, used in cache keys, audit events and metrics.
const (
	ModeSingle = "single"
	ModeDaily  = "daily"
)

// DefaultModelType is reported in model info when none is configured.
const DefaultModelType = "LSTM Bidireccional"

// ArtifactSource is the readiness gate in front of the loaded artifacts.
type ArtifactSource interface {
	Get() (*artifacts.Artifacts, error)
}

// Forecaster runs the prediction pipeline:
// window -> features -> alignment -> inference -> denormalization.
type Forecaster struct {
	artifacts    ArtifactSource
	generator    *features.Generator
	backend      domsvc.InferenceBackend
	cache        cache.Service
	cacheTTL     time.Duration
	recorder     *ForecastRecorder
	metrics      drepo.Metrics
	log          *logger.Logger
	modelType    string
	maxDailySpan int
}

// ForecasterOption configures a Forecaster.
type ForecasterOption func(*Forecaster)

// WithCache caches results for ttl. Cache failures never fail a request.
func WithCache(c cache.Service, ttl time.Duration) ForecasterOption {
	return func(f *Forecaster) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

func WithRecorder(r *ForecastRecorder) ForecasterOption {
	return func(f *Forecaster) { f.recorder = r }
}

func WithMetrics(m drepo.Metrics) ForecasterOption {
	return func(f *Forecaster) {
		if m != nil {
			f.metrics = m
		}
	}
}

func WithLogger(l *logger.Logger) ForecasterOption {
	return func(f *Forecaster) {
		if l != nil {
			f.log = l
		}
	}
}

func WithModelType(name string) ForecasterOption {
	return func(f *Forecaster) {
		if name != "" {
			f.modelType = name
		}
	}
}

// WithMaxDailySpan bounds how many anchors one daily request may ask for.
func WithMaxDailySpan(days int) ForecasterOption {
	return func(f *Forecaster) {
		if days > 0 {
			f.maxDailySpan = days
		}
	}
}

func NewForecaster(src ArtifactSource, gen *features.Generator, backend domsvc.InferenceBackend, opts ...ForecasterOption) *Forecaster {
	f := &Forecaster{
		artifacts:    src,
		generator:    gen,
		backend:      backend,
		metrics:      metrics.Nop{},
		log:          logger.Nop(),
		modelType:    DefaultModelType,
		maxDailySpan: 366,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.generator == nil {
		f.generator = features.NewGenerator(nil)
	}
	return f
}

// Predict returns the single forecast anchored at the end of the requested range.
func (f *Forecaster) Predict(ctx context.Context, target string, req models.ForecastRequest) (*models.ForecastResult, error) {
	start := time.Now()
	res, err := f.predictOne(ctx, ModeSingle, target, req)
	f.observe(ModeSingle, target, start, err)
	return res, err
}

// PredictDaily returns one forecast per day of the range, each anchored at that day.
func (f *Forecaster) PredictDaily(ctx context.Context, target string, req models.ForecastRequest) (*models.ForecastResult, error) {
	start := time.Now()
	res, err := f.predictOne(ctx, ModeDaily, target, req)
	f.observe(ModeDaily, target, start, err)
	return res, err
}

// PredictCombined runs both targets concurrently and joins them by date.
// A failure of either target fails the request.
func (f *Forecaster) PredictCombined(ctx context.Context, req models.ForecastRequest) (*models.CombinedResult, error) {
	start := time.Now()
	res, err := f.predictCombined(ctx, req)
	f.observe(drepo.ModeCombined, drepo.ModeCombined, start, err)
	return res, err
}

func (f *Forecaster) predictCombined(ctx context.Context, req models.ForecastRequest) (*models.CombinedResult, error) {
	if _, err := req.Range(); err != nil {
		return nil, err
	}
	if _, err := f.artifacts.Get(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type item struct {
		target drepo.Target
		run    *run
		err    error
	}
	targets := drepo.Targets()
	ch := make(chan item, len(targets))
	var wg sync.WaitGroup

	for _, t := range targets {
		wg.Add(1)
		go func(t drepo.Target) {
			defer wg.Done()
			r, err := f.predict(ctx, drepo.ModeCombined, string(t), req)
			if err != nil {
				cancel()
			}
			ch <- item{t, r, err}
		}(t)
	}

	go func() { wg.Wait(); close(ch) }()

	runs := make(map[drepo.Target]*run, len(targets))
	var errs []error
	for it := range ch {
		if it.err != nil {
			errs = append(errs, it.err)
			continue
		}
		runs[it.target] = it.run
	}
	if len(errs) > 0 {
		return nil, firstCause(errs)
	}
	// only a fully served combined forecast is cached and recorded
	f.commit(ctx, runs[drepo.TargetPasajeros], runs[drepo.TargetVehiculos])

	pas, veh := runs[drepo.TargetPasajeros].res, runs[drepo.TargetVehiculos].res
	out := &models.CombinedResult{
		Predictions: Combine(pas.Predictions, veh.Predictions),
		ModelInfo: map[string]models.ModelInfo{
			string(drepo.TargetPasajeros): pas.ModelInfo,
			string(drepo.TargetVehiculos): veh.ModelInfo,
		},
	}
	if req.IncludeFeatures {
		out.Features = map[string]models.FeatureRows{
			string(drepo.TargetPasajeros): pas.Features,
			string(drepo.TargetVehiculos): veh.Features,
		}
	}
	return out, nil
}

// run is a computed forecast whose cache write and audit events wait for commit.
type run struct {
	res     *models.ForecastResult
	mode    string
	key     string
	rng     models.DateRange
	version string
	hit     bool
}

func (f *Forecaster) predictOne(ctx context.Context, mode, target string, req models.ForecastRequest) (*models.ForecastResult, error) {
	r, err := f.predict(ctx, mode, target, req)
	if err != nil {
		return nil, err
	}
	f.commit(ctx, r)
	return r.res, nil
}

func (f *Forecaster) commit(ctx context.Context, runs ...*run) {
	for _, r := range runs {
		if r.hit {
			continue
		}
		f.store(ctx, r.key, r.res)
		f.recorder.RecordAsync(ctx, Events(r.mode, r.res, r.rng, r.version, time.Now()))
	}
}

func (f *Forecaster) predict(ctx context.Context, mode, target string, req models.ForecastRequest) (*run, error) {
	t, err := drepo.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	rng, err := req.Range()
	if err != nil {
		return nil, err
	}
	a, err := f.artifacts.Get()
	if err != nil {
		return nil, err
	}
	schema, err := a.Schema(t)
	if err != nil {
		return nil, err
	}

	key := cache.GenerateKeyWithParams("forecast", mode, t,
		xutil.FormatDate(rng.Start), xutil.FormatDate(rng.End), req.IncludeFeatures, a.Version)
	if res, ok := f.cached(ctx, key); ok {
		return &run{res: res, hit: true}, nil
	}

	var res *models.ForecastResult
	if mode == ModeDaily {
		res, err = f.runDaily(ctx, t, schema, rng, req.IncludeFeatures)
	} else {
		res, err = f.runSingle(ctx, t, schema, rng, req.IncludeFeatures)
	}
	if err != nil {
		return nil, err
	}
	return &run{res: res, mode: mode, key: key, rng: rng, version: a.Version}, nil
}

func (f *Forecaster) runSingle(ctx context.Context, t drepo.Target, schema *artifacts.Schema, rng models.DateRange, include bool) (*models.ForecastResult, error) {
	lookback := schema.Lookback()
	from := rng.Start
	if trail := xutil.AddDays(rng.End, -(lookback - 1)); trail.After(from) {
		from = trail
	}
	window, err := features.BuildWindow(from, rng.End, lookback)
	if err != nil {
		return nil, err
	}
	input, err := features.ModelInput(window, lookback)
	if err != nil {
		return nil, err
	}
	m, err := features.Align(input, f.generate(input), schema)
	if err != nil {
		return nil, err
	}

	counts, err := f.infer(ctx, t, schema, m.Tensor())
	if err != nil {
		return nil, err
	}
	preds, err := ZipWithDates([]time.Time{m.Anchor()}, counts)
	if err != nil {
		return nil, err
	}

	res := &models.ForecastResult{
		Target:      string(t),
		Predictions: preds,
		ModelInfo:   f.modelInfo(t, schema),
	}
	if include {
		res.Features = ComposeFeatures(m)
	}
	return res, nil
}

// runDaily sends every anchor of the range as one instance of a single backend call.
func (f *Forecaster) runDaily(ctx context.Context, t drepo.Target, schema *artifacts.Schema, rng models.DateRange, include bool) (*models.ForecastResult, error) {
	days := xutil.DaysBetween(rng.Start, rng.End) + 1
	if days > f.maxDailySpan {
		return nil, fmt.Errorf("%w: %d days requested, at most %d per daily forecast",
			models.ErrInvalidRange, days, f.maxDailySpan)
	}

	lookback := schema.Lookback()
	window, err := features.BuildWindow(xutil.AddDays(rng.Start, -(lookback-1)), rng.End, lookback)
	if err != nil {
		return nil, err
	}
	vectors := f.generate(window)

	offset := len(window) - days
	matrices := make([]features.Matrix, 0, days)
	anchors := make([]time.Time, 0, days)
	instances := make([][][]float64, 0, days)
	for i := 0; i < days; i++ {
		end := offset + i + 1
		m, err := features.Align(window[:end], vectors[:end], schema)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, m)
		anchors = append(anchors, m.Anchor())
		instances = append(instances, m.Values)
	}

	counts, err := f.infer(ctx, t, schema, instances)
	if err != nil {
		return nil, err
	}
	preds, err := ZipWithDates(anchors, counts)
	if err != nil {
		return nil, err
	}

	res := &models.ForecastResult{
		Target:      string(t),
		Predictions: preds,
		ModelInfo:   f.modelInfo(t, schema),
	}
	if include {
		res.Features = ComposeFeatures(matrices...)
	}
	return res, nil
}

func (f *Forecaster) infer(ctx context.Context, t drepo.Target, schema *artifacts.Schema, instances [][][]float64) ([]int, error) {
	values, err := f.backend.Infer(ctx, t, instances)
	if err != nil {
		return nil, err
	}
	if len(values) != len(instances) {
		return nil, fmt.Errorf("%w: %s: got %d predictions for %d instances",
			models.ErrBackend, t, len(values), len(instances))
	}

	counts := Denormalize(values, schema.Scaler)
	for _, c := range counts {
		if c < 0 {
			f.metrics.RecordNegativePrediction(string(t))
		}
	}
	return counts, nil
}

func (f *Forecaster) generate(dates []time.Time) []features.Vector {
	vectors := make([]features.Vector, len(dates))
	for i, d := range dates {
		vectors[i] = f.generator.Generate(d)
	}
	return vectors
}

func (f *Forecaster) modelInfo(t drepo.Target, schema *artifacts.Schema) models.ModelInfo {
	return models.ModelInfo{ModelType: f.modelType, Target: string(t), Lookback: schema.Lookback()}
}

func (f *Forecaster) cached(ctx context.Context, key string) (*models.ForecastResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	res, err := cache.GetTyped[models.ForecastResult](ctx, f.cache, key)
	switch {
	case err == nil:
		f.metrics.RecordCache("hit")
		return &res, true
	case errors.Is(err, cache.ErrCacheMiss):
		f.metrics.RecordCache("miss")
	default:
		f.metrics.RecordCache("error")
		f.log.Warn("forecast cache read failed", logger.String("key", key), logger.Error(err))
	}
	return nil, false
}

func (f *Forecaster) store(ctx context.Context, key string, res *models.ForecastResult) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Set(ctx, key, res, f.cacheTTL); err != nil {
		f.metrics.RecordCache("error")
		f.log.Warn("forecast cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (f *Forecaster) observe(mode, target string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = ErrorKind(err)
		f.metrics.RecordError(status)
		if errors.Is(err, models.ErrSchemaMismatch) || errors.Is(err, models.ErrBackend) {
			f.log.Error("forecast failed",
				logger.String("mode", mode),
				logger.String("target", target),
				logger.Error(err))
		}
	}
	f.metrics.RecordRequest(mode, target, status)
	f.metrics.RecordLatency("predict_"+mode, time.Since(start).Seconds())
}

// ErrorKind names the failure class of err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, models.ErrUnsupportedTarget):
		return "unsupported_target"
	case errors.Is(err, models.ErrArtifactsNotLoaded):
		return "artifacts_not_loaded"
	case errors.Is(err, models.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, models.ErrBackend):
		return "backend"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// firstCause prefers a real failure over the cancellation it caused in the sibling run.
func firstCause(errs []error) error {
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return errs[0]
}
