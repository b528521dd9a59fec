package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *recordingPublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestLogCollector_DeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "analytics.logs", Publisher: pub})

	fields := map[string]interface{}{"project_id": int64(7)}
	c.AddLog("error", "store fetch failed", fields, "internal/usecase/metrics.go:10")
	c.AddLog("error", "store fetch failed", fields, "internal/usecase/metrics.go:10")
	c.AddLog("error", "cache write failed", nil, "internal/usecase/metrics.go:20")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	entries := pub.entries()
	require.Len(t, entries, 2)
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 2, counts["store fetch failed"])
	assert.Equal(t, 1, counts["cache write failed"])
	assert.Equal(t, []string{"analytics.logs"}, pub.topics)
}

func TestLogCollector_FlushesAtThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "t", Publisher: pub})

	c.AddLog("error", "a", nil, "x")
	c.AddLog("error", "b", nil, "x")
	assert.Zero(t, c.Pending())

	c.Close()
	assert.Len(t, pub.entries(), 2)
}

func TestLogger_ErrorFeedsCollector(t *testing.T) {
	var buf bytes.Buffer
	pub := &recordingPublisher{}
	l := NewWithWriter(&buf, zerolog.InfoLevel)
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "t", Publisher: pub})

	child := l.With(String("component", "usecase"))
	child.Error("boom", Error(errors.New("fail")), Int64("project_id", 3))
	child.Warn("ignored by collector")
	l.RemoveCollector()

	entries := pub.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Message)
	assert.Equal(t, "fail", entries[0].Fields["error"])
	assert.Contains(t, buf.String(), `"component":"usecase"`)
}

func TestTrimSourcePath(t *testing.T) {
	assert.Equal(t, "internal/usecase/metrics.go", trimSourcePath("/src/analytics-product/internal/usecase/metrics.go"))
	assert.Equal(t, "main.go", trimSourcePath("/tmp/main.go"))
}
