package core

import (
	"context"
	"time"
)

// Coder is the unit of pluggable format support: capability checks, one-shot
// decode, post-decode normalization, and encode.  Implementations live in
// coders/ and must be stateless so a single instance is safe for concurrent
// use across goroutines.
type Coder interface {
	// CanDecode reports whether Decode is expected to succeed on data of
	// this shape.  It must be cheap (header inspection only) and must return
	// false on nil or empty input.
	CanDecode(data []byte) bool

	// Decode extracts a bitmap from encoded bytes.  Failure is recoverable:
	// the caller may try another coder or different bytes.
	Decode(ctx context.Context, data []byte) (*Bitmap, error)

	// Decompress applies the cross-format normalization pass to an already
	// decoded bitmap: alpha detection, device-RGB conversion, orientation
	// bake-in, and optional downscaling.  It returns the final bitmap plus
	// the canonical bytes a cache should persist, and must be idempotent
	// under re-application with the same options.
	Decompress(ctx context.Context, bm *Bitmap, buf *EncodedBuffer, opts DecodeOptions) (*DecompressedImage, error)

	// CanEncode is a cheap format-tag capability check.
	CanEncode(format Format) bool

	// Encode serializes a bitmap into the target format.
	Encode(ctx context.Context, bm *Bitmap, format Format) ([]byte, error)
}

// ProgressiveCoder extends Coder with incremental decoding.  The coder itself
// stays stateless; all mutable parse state lives in sessions it mints.
type ProgressiveCoder interface {
	Coder

	// CanIncrementalDecode is the streaming analogue of CanDecode, answered
	// from the leading bytes seen so far.
	CanIncrementalDecode(data []byte) bool

	// NewSession returns a fresh incremental-decode session.  One session
	// serves exactly one logical stream and must never be shared or reused.
	NewSession() ProgressiveSession
}

// ProgressiveSession owns the mutable state of one in-flight stream.  Feed is
// called with the cumulative bytes received so far (monotonically growing)
// and a flag marking the final call.  While too little data has arrived it
// returns (nil, nil); once enough structure is available it returns a
// best-effort partial bitmap; the finished call returns either a complete
// bitmap or a terminal error.  Sessions are not safe for concurrent use.
type ProgressiveSession interface {
	Feed(data []byte, finished bool) (*Bitmap, error)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector receives performance observations from the coordinator.
type MetricsCollector interface {
	RecordOpTime(op string, d interface{ Seconds() float64 })
	RecordBytes(n int64)
	RecordError(op string, category string)
}

// Hook is an optional observer invoked around coordinator operations
// ("decode", "decompress", "encode", "feed").
type Hook interface {
	BeforeOp(ctx context.Context, op string, format Format, size int64)
	AfterOp(ctx context.Context, op string, format Format, d time.Duration, err error)
}
