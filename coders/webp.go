package coders

import (
	"bytes"
	"context"

	chaiwebp "github.com/chai2010/webp"
	xwebp "golang.org/x/image/webp"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// WebP codes WebP images: decoding via golang.org/x/image/webp, encoding via
// github.com/chai2010/webp.  Animated WebP is not supported.
type WebP struct {
	DefaultQuality int
}

// NewWebP returns a WebP coder with the given default encode quality.
func NewWebP(defaultQuality int) *WebP {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &WebP{DefaultQuality: defaultQuality}
}

func (w *WebP) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.WebP
}

func (w *WebP) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}
	img, err := xwebp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (w *WebP) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (w *WebP) CanEncode(format core.Format) bool { return format == core.FormatWebP }

func (w *WebP) Encode(ctx context.Context, bm *core.Bitmap, format core.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	if !w.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "webp.encode", apperrors.ErrEncodeUnsupported)
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "webp.encode", apperrors.ErrEmptyInput)
	}
	var out bytes.Buffer
	opts := &chaiwebp.Options{Quality: float32(w.DefaultQuality)}
	if err := chaiwebp.Encode(&out, bm.Image, opts); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	return out.Bytes(), nil
}
