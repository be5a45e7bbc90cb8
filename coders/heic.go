package coders

import (
	"bytes"
	"context"
	"image"

	// Registers the HEIF/HEIC codec with the stdlib image registry.
	_ "github.com/strukturag/libheif/go/heif"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// HEIC decodes HEIF/HEIC images through the stdlib image registry extended by
// libheif.  Encoding is not supported.
type HEIC struct{}

// NewHEIC returns an initialised HEIC coder.
func NewHEIC() *HEIC { return &HEIC{} }

func (h *HEIC) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.HEIC
}

func (h *HEIC) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "heic.decode", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "heic.decode", err)
	}
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (h *HEIC) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (h *HEIC) CanEncode(core.Format) bool { return false }

func (h *HEIC) Encode(_ context.Context, _ *core.Bitmap, _ core.Format) ([]byte, error) {
	return nil, apperrors.New(apperrors.CategoryEncode, "heic.encode", apperrors.ErrEncodeUnsupported)
}
