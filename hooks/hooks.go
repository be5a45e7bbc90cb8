// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/image-coder/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, fields...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, fields...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, fields...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, fields...)
}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs coder operations as they start and finish.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeOp(_ context.Context, op string, format core.Format, size int64) {
	h.logger.Debug("coder.op.start",
		"op", op,
		"format", string(format),
		"size", size,
	)
}

func (h *LoggingHook) AfterOp(_ context.Context, op string, format core.Format, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("coder.op.error",
			"op", op,
			"format", string(format),
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("coder.op.done",
		"op", op,
		"format", string(format),
		"duration_ms", d.Milliseconds(),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	opDurationsMs map[string]int64 // cumulative ms per operation
	opCalls       map[string]int64 // call count per operation
	opErrors      map[string]int64

	totalBytes int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		opDurationsMs: make(map[string]int64),
		opCalls:       make(map[string]int64),
		opErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordOpTime(op string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.opDurationsMs[op] += ms
	m.opCalls[op]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordBytes(n int64) {
	atomic.AddInt64(&m.totalBytes, n)
}

func (m *InMemoryMetrics) RecordError(op string, _ string) {
	m.mu.Lock()
	m.opErrors[op]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		OpDurationsMs: make(map[string]int64, len(m.opDurationsMs)),
		OpCalls:       make(map[string]int64, len(m.opCalls)),
		OpErrors:      make(map[string]int64, len(m.opErrors)),
		TotalBytes:    atomic.LoadInt64(&m.totalBytes),
	}
	for k, v := range m.opDurationsMs {
		snap.OpDurationsMs[k] = v
	}
	for k, v := range m.opCalls {
		snap.OpCalls[k] = v
	}
	for k, v := range m.opErrors {
		snap.OpErrors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	OpDurationsMs map[string]int64
	OpCalls       map[string]int64
	OpErrors      map[string]int64
	TotalBytes    int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds coder operation events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeOp(_ context.Context, _ string, _ core.Format, _ int64) {}

func (h *MetricsHook) AfterOp(_ context.Context, op string, _ core.Format, d time.Duration, err error) {
	h.collector.RecordOpTime(op, d)
	if err != nil {
		h.collector.RecordError(op, "coder")
	}
}
