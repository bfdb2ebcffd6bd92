package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"FerryCast/internal/domain/repository"
	domsvc "FerryCast/internal/domain/service"
	"FerryCast/internal/handler/api"
	internalrepo "FerryCast/internal/repository"
	"FerryCast/internal/service/ratelimit"
	"FerryCast/internal/services/artifacts"
	"FerryCast/internal/services/features"
	"FerryCast/internal/services/inference"
	"FerryCast/internal/usecase"
	"FerryCast/pkg/cache"
	pkgch "FerryCast/pkg/clickhouse"
	"FerryCast/pkg/config"
	xhttp "FerryCast/pkg/http"
	"FerryCast/pkg/http/middleware"
	pkgkafka "FerryCast/pkg/kafka"
	applogger "FerryCast/pkg/logger"
	"FerryCast/pkg/metrics"
	"FerryCast/pkg/server"
)

// ProvideLogger creates the application logger. When kafka.log_topic is set,
// aggregated errors are also published there.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Kafka.LogTopic == "" {
		return l, func() {}, nil
	}

	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, nil, err
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogTopic,
		Service:        "ferrycast",
		Publisher:      producer,
	})
	cleanup := func() {
		l.RemoveCollector()
		_ = producer.Close()
	}
	return l, cleanup, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideArtifactStore creates the empty readiness gate.
func ProvideArtifactStore() *artifacts.Store {
	return artifacts.NewStore()
}

// ProvideFeatureGenerator creates the calendar feature generator.
func ProvideFeatureGenerator(cfg *config.Config, l *applogger.Logger) (*features.Generator, error) {
	if cfg.Forecast.HolidayCalendar == "" {
		return features.NewGenerator(nil), nil
	}
	cal, err := features.LoadHolidayCalendar(cfg.Forecast.HolidayCalendar)
	if err != nil {
		return nil, fmt.Errorf("holiday calendar: %w", err)
	}
	l.Info("holiday calendar loaded",
		applogger.String("path", cfg.Forecast.HolidayCalendar),
		applogger.Int("days", cal.Len()))
	return features.NewGenerator(cal), nil
}

// ProvideInferenceBackend creates the TensorFlow Serving client.
func ProvideInferenceBackend(cfg *config.Config, m repository.Metrics, l *applogger.Logger) domsvc.InferenceBackend {
	return inference.NewTFServingClient(cfg, m, l)
}

// ProvideCache creates the forecast cache: memory only, or memory in front
// of Redis. A nil Service disables caching.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}

	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(time.Minute),
	), nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// forecasts table exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, 0),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithInserts(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync, cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.ForecastSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyOrdering(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideForecastSink selects the audit backend.
func ProvideForecastSink(cfg *config.Config) (repository.ForecastSink, func(), error) {
	switch cfg.Audit.Backend {
	case config.AuditKafka:
		producer, err := ProvideKafkaProducer(cfg)
		if err != nil {
			return nil, nil, err
		}
		// The recorder closes the sink, which closes the producer.
		return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.Topic), func() {}, nil
	case config.AuditClickHouse:
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = client.Close() }
		return internalrepo.NewClickHouseForecastStore(client.DB(), client.Database()), cleanup, nil
	default:
		return internalrepo.NewNopForecastSink(), func() {}, nil
	}
}

// ProvideForecastRecorder creates the audit recorder.
func ProvideForecastRecorder(
	sink repository.ForecastSink,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ForecastRecorder {
	return usecase.NewForecastRecorder(sink, m, l, cfg.Audit.Backend, cfg.Audit.Timeout)
}

// ProvideForecaster creates the forecasting use case.
func ProvideForecaster(
	cfg *config.Config,
	store *artifacts.Store,
	gen *features.Generator,
	backend domsvc.InferenceBackend,
	c cache.Service,
	rec *usecase.ForecastRecorder,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Forecaster {
	opts := []usecase.ForecasterOption{
		usecase.WithRecorder(rec),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
		usecase.WithModelType(cfg.Forecast.ModelType),
		usecase.WithMaxDailySpan(cfg.Forecast.MaxDailySpan),
	}
	if c != nil {
		opts = append(opts, usecase.WithCache(c, cfg.Cache.TTL))
	}
	return usecase.NewForecaster(store, gen, backend, opts...)
}

// ProvideForecastHandler creates the Echo handler.
func ProvideForecastHandler(l *applogger.Logger, fc *usecase.Forecaster, store *artifacts.Store) xhttp.Handler {
	return api.NewForecastEchoHandler(l, fc, store)
}

// ProvideHTTPServer creates the Echo server with its middleware chain.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	}
	if cfg.RateLimit.Enabled {
		var lim middleware.Allower = ratelimit.New(float64(cfg.RateLimit.Capacity), cfg.RateLimit.RefillPerSec)
		opts = append(opts, xhttp.WithRateLimit(lim))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store *artifacts.Store,
	m repository.Metrics,
	srv *xhttp.Server,
	rec *usecase.ForecastRecorder,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, store, m, srv, rec, c)
}
