package coders

import (
	"bytes"
	"image"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
)

// decodeFunc decodes a complete image; configFunc parses only the header.
type decodeFunc func(r *bytes.Reader) (image.Image, error)
type configFunc func(r *bytes.Reader) (image.Config, error)

// incrementalSession is the shared state machine behind the progressive
// coders.  State only moves forward: the header, once parsed, pins the
// dimensions, and the best bitmap so far is only ever replaced by a newer
// successful decode, so successive non-empty results never shrink or flip
// the alpha flag.
type incrementalSession struct {
	format core.Format
	decode decodeFunc
	config configFunc

	width, height int
	haveConfig    bool
	best          *core.Bitmap
	done          bool
}

func newIncrementalSession(format core.Format, dec decodeFunc, cfg configFunc) *incrementalSession {
	return &incrementalSession{format: format, decode: dec, config: cfg}
}

// Feed implements core.ProgressiveSession over cumulative bytes.
func (s *incrementalSession) Feed(data []byte, finished bool) (*core.Bitmap, error) {
	if s.done {
		return nil, apperrors.New(apperrors.CategoryStream, string(s.format)+".feed", apperrors.ErrStreamClosed)
	}
	if finished {
		s.done = true
	}

	if !s.haveConfig {
		cfg, err := s.config(bytes.NewReader(data))
		if err != nil {
			if finished {
				return nil, apperrors.New(apperrors.CategoryDecode, string(s.format)+".feed",
					apperrors.ErrDecodeFailed)
			}
			return nil, nil // header incomplete: insufficient data
		}
		s.width, s.height = cfg.Width, cfg.Height
		s.haveConfig = true
	}

	img, err := s.decode(bytes.NewReader(data))
	if err != nil {
		if finished {
			// The complete stream still does not decode: terminal failure.
			return nil, apperrors.Wrap(apperrors.CategoryDecode, string(s.format)+".feed", err)
		}
		// Truncated body: report the best bitmap produced so far, if any.
		return s.best, nil
	}

	s.best = &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}
	return s.best, nil
}
