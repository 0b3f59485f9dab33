package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships aggregated log batches somewhere (Kafka in production).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval (e.g., 30s)
	CountThreshold int           // max unique logs before flush (e.g., 100)
	Topic          string        // topic to send aggregated logs
	Service        string        // reported on every batch
	QueueSize      int           // pending batches before new ones are dropped
	Publisher      Publisher
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogBatch is one flush of deduplicated entries, most frequent first.
type LogBatch struct {
	Service   string               `json:"service"`
	Host      string               `json:"host"`
	FlushedAt time.Time            `json:"flushed_at"`
	Entries   []AggregatedLogEntry `json:"entries"`
}

// LogCollector deduplicates warn and error entries and periodically
// publishes them with occurrence counts. A single sender goroutine drains
// the batch queue; when it falls behind, new batches are dropped.
type LogCollector struct {
	config  *CollectionConfig
	host    string
	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry
	queue   chan LogBatch
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped int
	closed  bool
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}
	host, _ := os.Hostname()

	c := &LogCollector{
		config:  config,
		host:    host,
		entries: make(map[string]*AggregatedLogEntry),
		queue:   make(chan LogBatch, config.QueueSize),
		stop:    make(chan struct{}),
	}
	c.wg.Add(2)
	go c.tick()
	go c.send()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(c.entries) >= c.config.CountThreshold {
		c.flushLocked()
	}
}

// Dropped reports how many batches were discarded because the queue was full.
func (c *LogCollector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	// json.Marshal sorts map keys, so equal field sets hash alike.
	b, _ := json.Marshal([]interface{}{level, message, fields, caller})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *LogCollector) tick() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
		case <-c.stop:
			c.mu.Lock()
			c.flushLocked()
			c.closed = true
			close(c.queue)
			c.mu.Unlock()
			return
		}
	}
}

func (c *LogCollector) flushLocked() {
	if c.closed || len(c.entries) == 0 || c.config.Publisher == nil {
		return
	}

	batch := LogBatch{
		Service:   c.config.Service,
		Host:      c.host,
		FlushedAt: time.Now(),
		Entries:   make([]AggregatedLogEntry, 0, len(c.entries)),
	}
	for _, e := range c.entries {
		batch.Entries = append(batch.Entries, *e)
	}
	sort.Slice(batch.Entries, func(i, j int) bool {
		a, b := batch.Entries[i], batch.Entries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.FirstSeen.Before(b.FirstSeen)
	})
	c.entries = make(map[string]*AggregatedLogEntry)

	select {
	case c.queue <- batch:
	default:
		c.dropped++
	}
}

func (c *LogCollector) send() {
	defer c.wg.Done()
	for batch := range c.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send aggregated logs: %v\n", err)
		}
		cancel()
	}
}

// Close flushes what is pending and waits until every queued batch is sent.
func (c *LogCollector) Close() {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
}
