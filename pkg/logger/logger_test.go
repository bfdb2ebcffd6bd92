package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorAggregatesErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop().With(String("component", "forecaster"))
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "ferry.logs",
		Service:        "ferrycast",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		l.Error("backend unavailable", String("target", "pasajeros"), Error(errors.New("boom")))
	}
	l.Warn("not collected")
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "ferry.logs", pub.topic)
	require.Len(t, pub.batches[0], 1)

	entry := pub.batches[0][0]
	assert.Equal(t, 3, entry.Count)
	assert.Equal(t, "error", entry.Level)
	assert.Equal(t, "ferrycast", entry.Service)
	assert.Equal(t, "forecaster", entry.Fields["component"])
	assert.Equal(t, "pasajeros", entry.Fields["target"])
	assert.Contains(t, entry.Caller, "logger/logger_test.go:")
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "ferry.logs",
		Publisher:      pub,
	})
	defer c.Close()

	c.AddLog("error", "forecast failed", map[string]interface{}{"error": "backend: timeout"}, "usecase/forecaster.go:10")
	c.AddLog("error", "forecast failed", map[string]interface{}{"error": "backend: timeout"}, "usecase/forecaster.go:10")
	c.AddLog("error", "forecast failed", map[string]interface{}{"error": "schema mismatch"}, "usecase/forecaster.go:10")

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.batches) == 1
	}, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	batch := pub.batches[0]
	pub.mu.Unlock()
	require.Len(t, batch, 2)
	assert.Equal(t, 2, batch[0].Count)
	assert.Equal(t, "backend: timeout", batch[0].Fields["error"])
	assert.Equal(t, 1, batch[1].Count)

	c.Close()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.batches, 1)
}

func TestNew(t *testing.T) {
	_, err := New(&Config{Level: "nope", Output: "stdout"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	l.Info("ready", Float64("value", 1.5), Bool("ok", true))
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "usecase/forecaster.go", shortPath("/src/app/internal/usecase/forecaster.go"))
	assert.Equal(t, "main.go", shortPath("main.go"))
}
