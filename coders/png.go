// Package coders provides the built-in Coder implementations.
package coders

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// PNG codes PNG images using the standard library.  It supports progressive
// decoding of streamed downloads.
type PNG struct{}

// NewPNG returns an initialised PNG coder.
func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.PNG
}

func (p *PNG) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (p *PNG) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, bm *core.Bitmap, format core.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	if !p.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "png.encode", apperrors.ErrEncodeUnsupported)
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "png.encode", apperrors.ErrEmptyInput)
	}
	var out bytes.Buffer
	if err := png.Encode(&out, bm.Image); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	return out.Bytes(), nil
}

func (p *PNG) CanIncrementalDecode(data []byte) bool { return p.CanDecode(data) }

func (p *PNG) NewSession() core.ProgressiveSession {
	return newIncrementalSession(core.FormatPNG,
		func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		func(r *bytes.Reader) (image.Config, error) { return png.DecodeConfig(r) },
	)
}
