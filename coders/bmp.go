package coders

import (
	"bytes"
	"context"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// BMP codes Windows bitmaps using golang.org/x/image/bmp.
type BMP struct{}

// NewBMP returns an initialised BMP coder.
func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.BMP
}

func (b *BMP) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "bmp.decode", err)
	}
	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "bmp.decode", err)
	}
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (b *BMP) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (b *BMP) CanEncode(format core.Format) bool { return format == core.FormatBMP }

func (b *BMP) Encode(ctx context.Context, bm *core.Bitmap, format core.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "bmp.encode", err)
	}
	if !b.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "bmp.encode", apperrors.ErrEncodeUnsupported)
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "bmp.encode", apperrors.ErrEmptyInput)
	}
	var out bytes.Buffer
	if err := bmp.Encode(&out, bm.Image); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "bmp.encode", err)
	}
	return out.Bytes(), nil
}
