package coders

import (
	"bytes"
	"context"
	"image"
	"image/gif"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// GIF codes GIF images using the standard library.  Decoding an animated GIF
// yields its first frame; re-encoding an animation is not supported since the
// Bitmap value type carries a single raster.
type GIF struct{}

// NewGIF returns an initialised GIF coder.
func NewGIF() *GIF { return &GIF{} }

func (g *GIF) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.GIF
}

func (g *GIF) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
	}
	img, err := gif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
	}
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (g *GIF) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (g *GIF) CanEncode(format core.Format) bool { return format == core.FormatGIF }

func (g *GIF) Encode(ctx context.Context, bm *core.Bitmap, format core.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "gif.encode", err)
	}
	if !g.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "gif.encode", apperrors.ErrEncodeUnsupported)
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "gif.encode", apperrors.ErrEmptyInput)
	}
	var out bytes.Buffer
	if err := gif.Encode(&out, bm.Image, nil); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "gif.encode", err)
	}
	return out.Bytes(), nil
}

func (g *GIF) CanIncrementalDecode(data []byte) bool { return g.CanDecode(data) }

func (g *GIF) NewSession() core.ProgressiveSession {
	return newIncrementalSession(core.FormatGIF,
		func(r *bytes.Reader) (image.Image, error) { return gif.Decode(r) },
		func(r *bytes.Reader) (image.Config, error) { return gif.DecodeConfig(r) },
	)
}
