package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Skryldev/image-coder/config"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
	"github.com/Skryldev/image-coder/utils"
)

// Coordinator ties sniffing, registry lookup, decode, and decompress into one
// call surface.  All operations are synchronous and run on the caller's
// goroutine; the coordinator never spawns work of its own.  It is safe for
// concurrent use.
type Coordinator struct {
	cfg      config.Config
	registry *Registry
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	// Atomic counters for lightweight internal stats.
	loadedCount int64
	errorCount  int64
}

// New creates a Coordinator backed by the given registry.
func New(cfg config.Config, reg *Registry) *Coordinator {
	if cfg.MaxDecodedPixels <= 0 {
		cfg.MaxDecodedPixels = config.DefaultMaxDecodedPixels
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 32 * 1024
	}
	return &Coordinator{cfg: cfg, registry: reg}
}

// SetLogger attaches a structured logger.
func (c *Coordinator) SetLogger(l Logger) { c.logger = l }

// SetMetrics attaches a metrics collector.
func (c *Coordinator) SetMetrics(m MetricsCollector) { c.metrics = m }

// AddHook registers an observer for coder operations.
func (c *Coordinator) AddHook(h Hook) { c.hooks = append(c.hooks, h) }

// Registry returns the underlying registry so callers can register coders
// after construction.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Load decodes data into a normalized bitmap: sniff for a diagnostic hint,
// resolve the first capable coder, decode, then decompress with the caller's
// options.  Failures are classified as "no capable coder" when nothing
// matched and "decode failed" when a matching coder could not decode.
func (c *Coordinator) Load(ctx context.Context, data []byte, opts DecodeOptions) (*DecompressedImage, error) {
	if len(data) == 0 {
		return nil, c.fail("load", apperrors.New(apperrors.CategoryInput, "load", apperrors.ErrEmptyInput))
	}

	// The sniffed format is a diagnostic hint only; coder selection is driven
	// by each coder's own capability check.
	hint := Format(sniff.Detect(data))

	coder := c.registry.FindDecoder(data)
	if coder == nil {
		if c.logger != nil {
			c.logger.Warn("coder.load.unsupported", "format_hint", string(hint), "size", len(data))
		}
		return nil, c.fail("load", apperrors.New(apperrors.CategoryDecode, "load",
			fmt.Errorf("%w (sniffed %q)", apperrors.ErrNoCapableCoder, hint)))
	}

	bm, err := c.decode(ctx, coder, data, hint)
	if err != nil {
		return nil, c.fail("load", err)
	}

	opts = opts.WithDefault(OptionMaxDecodedPixels, c.cfg.MaxDecodedPixels)
	out, err := c.decompress(ctx, coder, bm, NewEncodedBuffer(data, hint), opts)
	if err != nil {
		return nil, c.fail("load", err)
	}

	atomic.AddInt64(&c.loadedCount, 1)
	if c.metrics != nil {
		c.metrics.RecordBytes(int64(len(data)))
	}
	return out, nil
}

// LoadReader drains r (honoring the configured byte cap) and loads the result.
func (c *Coordinator) LoadReader(ctx context.Context, r io.Reader, opts DecodeOptions) (*DecompressedImage, error) {
	if c.cfg.MaxImageBytes > 0 {
		r = &utils.LimitedReader{R: r, Max: c.cfg.MaxImageBytes}
	}
	buf, err := utils.DrainReader(ctx, r, c.cfg.ChunkSize)
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, c.fail("load", apperrors.New(apperrors.CategoryInput, "load.drain", apperrors.ErrTooLarge))
		}
		return nil, c.fail("load", apperrors.Wrap(apperrors.CategoryInput, "load.drain", err))
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return c.Load(ctx, data, opts)
}

// Encode serializes bm into the target format using the first capable
// registered coder.
func (c *Coordinator) Encode(ctx context.Context, bm *Bitmap, format Format) (*EncodedBuffer, error) {
	if bm == nil || bm.Image == nil {
		return nil, c.fail("encode", apperrors.New(apperrors.CategoryInput, "encode", apperrors.ErrEmptyInput))
	}
	coder := c.registry.FindEncoder(format)
	if coder == nil {
		return nil, c.fail("encode", apperrors.New(apperrors.CategoryEncode, "encode",
			fmt.Errorf("%w: %s", apperrors.ErrEncodeUnsupported, format)))
	}

	c.notifyBefore(ctx, "encode", format, 0)
	start := time.Now()
	data, err := coder.Encode(ctx, bm, format)
	elapsed := time.Since(start)
	c.notifyAfter(ctx, "encode", format, elapsed, err)

	if err != nil {
		return nil, c.fail("encode", apperrors.Wrap(apperrors.CategoryEncode, "encode", err))
	}
	if c.metrics != nil {
		c.metrics.RecordBytes(int64(len(data)))
	}
	return NewEncodedBuffer(data, format), nil
}

// LoadedCount returns the total number of successful loads.
func (c *Coordinator) LoadedCount() int64 { return atomic.LoadInt64(&c.loadedCount) }

// ErrorCount returns the total number of load/encode/stream errors.
func (c *Coordinator) ErrorCount() int64 { return atomic.LoadInt64(&c.errorCount) }

// ── internals ─────────────────────────────────────────────────────────────────

func (c *Coordinator) decode(ctx context.Context, coder Coder, data []byte, hint Format) (*Bitmap, error) {
	c.notifyBefore(ctx, "decode", hint, int64(len(data)))
	start := time.Now()
	bm, err := coder.Decode(ctx, data)
	elapsed := time.Since(start)
	c.notifyAfter(ctx, "decode", hint, elapsed, err)

	if err != nil {
		return nil, apperrors.New(apperrors.CategoryDecode, "load.decode",
			fmt.Errorf("%w: %w", apperrors.ErrDecodeFailed, err))
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryDecode, "load.decode", apperrors.ErrDecodeFailed)
	}
	return bm, nil
}

func (c *Coordinator) decompress(ctx context.Context, coder Coder, bm *Bitmap, buf *EncodedBuffer, opts DecodeOptions) (*DecompressedImage, error) {
	c.notifyBefore(ctx, "decompress", buf.Format, int64(buf.Len()))
	start := time.Now()
	out, err := coder.Decompress(ctx, bm, buf, opts)
	elapsed := time.Since(start)
	c.notifyAfter(ctx, "decompress", buf.Format, elapsed, err)

	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecompress, "load.decompress", err)
	}
	if out == nil || out.Bitmap == nil {
		return nil, apperrors.New(apperrors.CategoryDecompress, "load.decompress", apperrors.ErrDecodeFailed)
	}
	return out, nil
}

func (c *Coordinator) fail(op string, err error) error {
	atomic.AddInt64(&c.errorCount, 1)
	if c.metrics != nil {
		var cat apperrors.Category
		var ce *apperrors.CoderError
		if errors.As(err, &ce) {
			cat = ce.Category
		}
		c.metrics.RecordError(op, string(cat))
	}
	return err
}

func (c *Coordinator) notifyBefore(ctx context.Context, op string, format Format, size int64) {
	for _, h := range c.hooks {
		h.BeforeOp(ctx, op, format, size)
	}
}

func (c *Coordinator) notifyAfter(ctx context.Context, op string, format Format, d time.Duration, err error) {
	for _, h := range c.hooks {
		h.AfterOp(ctx, op, format, d, err)
	}
	if c.metrics != nil {
		c.metrics.RecordOpTime(op, d)
	}
}
