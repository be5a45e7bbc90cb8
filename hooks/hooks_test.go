package hooks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Skryldev/image-coder/core"
)

func TestInMemoryMetricsSnapshot(t *testing.T) {
	m := NewInMemoryMetrics()
	m.RecordOpTime("decode", 5*time.Millisecond)
	m.RecordOpTime("decode", 7*time.Millisecond)
	m.RecordOpTime("encode", 3*time.Millisecond)
	m.RecordBytes(1024)
	m.RecordError("decode", "decode")

	snap := m.Snapshot()
	if snap.OpCalls["decode"] != 2 {
		t.Errorf("decode calls = %d, want 2", snap.OpCalls["decode"])
	}
	if snap.OpCalls["encode"] != 1 {
		t.Errorf("encode calls = %d, want 1", snap.OpCalls["encode"])
	}
	if snap.OpDurationsMs["decode"] != 12 {
		t.Errorf("decode cumulative ms = %d, want 12", snap.OpDurationsMs["decode"])
	}
	if snap.TotalBytes != 1024 {
		t.Errorf("total bytes = %d, want 1024", snap.TotalBytes)
	}
	if snap.OpErrors["decode"] != 1 {
		t.Errorf("decode errors = %d, want 1", snap.OpErrors["decode"])
	}

	// The snapshot must not alias live state.
	snap.OpCalls["decode"] = 99
	if m.Snapshot().OpCalls["decode"] != 2 {
		t.Error("snapshot aliases the live metrics maps")
	}
}

func TestMetricsHookRecordsErrors(t *testing.T) {
	m := NewInMemoryMetrics()
	h := NewMetricsHook(m)

	h.AfterOp(context.Background(), "decode", core.FormatPNG, time.Millisecond, nil)
	h.AfterOp(context.Background(), "decode", core.FormatPNG, time.Millisecond, errors.New("boom"))

	snap := m.Snapshot()
	if snap.OpCalls["decode"] != 2 {
		t.Errorf("decode calls = %d, want 2", snap.OpCalls["decode"])
	}
	if snap.OpErrors["decode"] != 1 {
		t.Errorf("decode errors = %d, want 1", snap.OpErrors["decode"])
	}
}

func TestLoggingHookWritesStructuredRecords(t *testing.T) {
	var out bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	h := NewLoggingHook(logger)

	h.BeforeOp(context.Background(), "decode", core.FormatJPEG, 2048)
	h.AfterOp(context.Background(), "decode", core.FormatJPEG, 4*time.Millisecond, nil)
	h.AfterOp(context.Background(), "encode", core.FormatPNG, time.Millisecond, errors.New("boom"))

	log := out.String()
	for _, want := range []string{"coder.op.start", "coder.op.done", "coder.op.error", "format=jpeg", "boom"} {
		if !strings.Contains(log, want) {
			t.Errorf("log output missing %q:\n%s", want, log)
		}
	}
}
