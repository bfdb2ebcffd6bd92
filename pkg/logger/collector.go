package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries, normally to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls error aggregation. Zero values take defaults.
type CollectionConfig struct {
	TimeInterval   time.Duration
	CountThreshold int
	Topic          string
	Service        string
	PublishTimeout time.Duration
	Publisher      Publisher
}

// AggregatedLogEntry is one distinct error with its repeat count. Fields are
// those of the first occurrence.
type AggregatedLogEntry struct {
	Service   string                 `json:"service,omitempty"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector groups repeated errors by level, caller, message and cause, and
// publishes them as one batch every TimeInterval or as soon as CountThreshold
// distinct entries are pending. A single goroutine does all publishing.
type LogCollector struct {
	cfg CollectionConfig
	now func() time.Time

	mu      sync.Mutex
	pending map[string]*AggregatedLogEntry
	order   []string

	full      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}

	c := &LogCollector{
		cfg:     cfg,
		now:     time.Now,
		pending: make(map[string]*AggregatedLogEntry),
		full:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	key := digestKey(level, message, caller, fields)
	now := c.now()

	c.mu.Lock()
	entry, ok := c.pending[key]
	if !ok {
		entry = &AggregatedLogEntry{
			Service:   c.cfg.Service,
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			FirstSeen: now,
		}
		c.pending[key] = entry
		c.order = append(c.order, key)
	}
	entry.Count++
	entry.LastSeen = now
	n := len(c.pending)
	c.mu.Unlock()

	if n >= c.cfg.CountThreshold {
		select {
		case c.full <- struct{}{}:
		default:
		}
	}
}

func digestKey(level, message, caller string, fields map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte('|')
	b.WriteString(caller)
	b.WriteByte('|')
	b.WriteString(message)
	if cause, ok := fields["error"]; ok {
		b.WriteByte('|')
		fmt.Fprint(&b, cause)
	}
	return b.String()
}

// take empties the pending set, in first-seen order.
func (c *LogCollector) take() []AggregatedLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.order))
	for _, key := range c.order {
		batch = append(batch, *c.pending[key])
	}
	c.pending = make(map[string]*AggregatedLogEntry)
	c.order = nil
	return batch
}

func (c *LogCollector) run() {
	defer close(c.stopped)

	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-c.full:
		case <-c.done:
			c.publish(c.take())
			return
		}
		c.publish(c.take())
	}
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PublishTimeout)
	defer cancel()

	// the logger cannot report its own transport failures through itself
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		fmt.Fprintf(os.Stderr, "publish %d aggregated log entries: %v\n", len(batch), err)
	}
}

// Close publishes what is pending and stops the collector. Safe to call twice.
func (c *LogCollector) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.stopped
}
