package coders

import (
	"bytes"
	"context"

	"golang.org/x/image/tiff"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// TIFF codes TIFF images using golang.org/x/image/tiff.
type TIFF struct{}

// NewTIFF returns an initialised TIFF coder.
func NewTIFF() *TIFF { return &TIFF{} }

func (t *TIFF) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.TIFF
}

func (t *TIFF) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "tiff.decode", err)
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "tiff.decode", err)
	}
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (t *TIFF) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (t *TIFF) CanEncode(format core.Format) bool { return format == core.FormatTIFF }

func (t *TIFF) Encode(ctx context.Context, bm *core.Bitmap, format core.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "tiff.encode", err)
	}
	if !t.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "tiff.encode", apperrors.ErrEncodeUnsupported)
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "tiff.encode", apperrors.ErrEmptyInput)
	}
	var out bytes.Buffer
	if err := tiff.Encode(&out, bm.Image, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "tiff.encode", err)
	}
	return out.Bytes(), nil
}
