package core

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
	"github.com/Skryldev/image-coder/utils"
)

// Stream is the handle for one logical progressive download.  The coordinator
// resolves a progressive coder once, on the first chunk that carries enough
// header to match, and the same session then serves the stream for its whole
// lifetime.  A Stream is single-owner state: at most one goroutine may feed
// it, and chunks must arrive in order.  Two downloads must never share one.
type Stream struct {
	coord *Coordinator

	buf     *bytes.Buffer // cumulative bytes, pooled
	session ProgressiveSession
	format  Format

	fed      int64
	finished bool
	closed   bool
}

// BeginStream allocates a fresh streaming handle.  Call Close when the
// download completes or is abandoned.
func (c *Coordinator) BeginStream() *Stream {
	return &Stream{coord: c, buf: utils.AcquireBuffer()}
}

// Feed appends the next chunk and attempts a best-effort incremental decode
// over all bytes received so far.  A (nil, nil) return means "not enough data
// yet - feed more"; it is a normal transient outcome, not an error.  Once
// finished is passed the stream accepts no further chunks.
func (s *Stream) Feed(ctx context.Context, chunk []byte, finished bool) (*Bitmap, error) {
	if s.closed || s.finished {
		return nil, apperrors.New(apperrors.CategoryStream, "feed", apperrors.ErrStreamClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStream, "feed", err)
	}

	max := s.coord.cfg.MaxImageBytes
	if max > 0 && s.fed+int64(len(chunk)) > max {
		return nil, s.coord.fail("feed", apperrors.New(apperrors.CategoryInput, "feed", apperrors.ErrTooLarge))
	}
	s.buf.Write(chunk)
	s.fed += int64(len(chunk))
	if finished {
		s.finished = true
	}

	data := s.buf.Bytes()
	if len(data) == 0 {
		if finished {
			return nil, s.coord.fail("feed", apperrors.New(apperrors.CategoryInput, "feed", apperrors.ErrEmptyInput))
		}
		return nil, nil
	}

	if s.session == nil {
		if !s.resolve(data, finished) {
			if finished {
				// No registered coder supports incremental decoding of this
				// stream; fall back to a one-shot decode of the full bytes.
				return s.fallbackDecode(ctx, data)
			}
			return nil, nil // header not recognizable yet
		}
	}

	c := s.coord
	c.notifyBefore(ctx, "feed", s.format, int64(len(data)))
	start := time.Now()
	bm, err := s.session.Feed(data, finished)
	elapsed := time.Since(start)
	c.notifyAfter(ctx, "feed", s.format, elapsed, err)

	if err != nil {
		return nil, c.fail("feed", apperrors.New(apperrors.CategoryStream, "feed",
			fmt.Errorf("%w: %w", apperrors.ErrDecodeFailed, err)))
	}
	if finished && bm != nil {
		atomic.AddInt64(&c.loadedCount, 1)
		if c.metrics != nil {
			c.metrics.RecordBytes(s.fed)
		}
	}
	return bm, nil
}

// BytesFed returns how many bytes the stream has accepted.  Callers that want
// to convert prolonged "insufficient data" into a hard failure can build
// their threshold policy on it.
func (s *Stream) BytesFed() int64 { return s.fed }

// Finished reports whether the final chunk has been fed.
func (s *Stream) Finished() bool { return s.finished }

// Close releases the stream's buffer.  Abandoning a stream needs nothing
// more: feeding is synchronous, so there is no background work to interrupt.
// Close is idempotent.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	utils.ReleaseBuffer(s.buf)
	s.buf = nil
	s.session = nil
}

// resolve tries to bind a progressive session once the sniffer recognizes the
// leading bytes.  It reports whether a session is now bound.
func (s *Stream) resolve(data []byte, finished bool) bool {
	format := Format(sniff.Detect(data))
	if format == FormatUndefined && !finished {
		return false
	}
	pc := s.coord.registry.FindProgressiveDecoder(data)
	if pc == nil {
		return false
	}
	s.session = pc.NewSession()
	s.format = format
	if s.coord.logger != nil {
		s.coord.logger.Debug("coder.stream.resolved", "format", string(format))
	}
	return true
}

// fallbackDecode handles a finished stream for which no progressive coder was
// found: the accumulated bytes go through the normal one-shot decode path.
func (s *Stream) fallbackDecode(ctx context.Context, data []byte) (*Bitmap, error) {
	coder := s.coord.registry.FindDecoder(data)
	if coder == nil {
		return nil, s.coord.fail("feed", apperrors.New(apperrors.CategoryDecode, "feed",
			fmt.Errorf("%w (sniffed %q)", apperrors.ErrNoCapableCoder, sniff.Detect(data))))
	}
	bm, err := s.coord.decode(ctx, coder, data, Format(sniff.Detect(data)))
	if err != nil {
		return nil, s.coord.fail("feed", err)
	}
	return bm, nil
}
