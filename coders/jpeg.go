package coders

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/decompress"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// JPEG codes JPEG images using the standard library.  It supports progressive
// decoding of streamed downloads.
type JPEG struct {
	DefaultQuality int // used for encoding; 0 resolves to 85
}

// NewJPEG returns a JPEG coder with the given default encode quality.
func NewJPEG(defaultQuality int) *JPEG {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &JPEG{DefaultQuality: defaultQuality}
}

func (j *JPEG) CanDecode(data []byte) bool {
	return sniff.Detect(data) == sniff.JPEG
}

func (j *JPEG) Decode(ctx context.Context, data []byte) (*core.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}
	// JPEG carries no alpha channel, but the flag is still computed from the
	// decoded pixels rather than assumed from the format.
	return &core.Bitmap{
		Image:       img,
		HasAlpha:    decompress.HasAlphaPixels(img),
		Orientation: 1,
	}, nil
}

func (j *JPEG) Decompress(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	return decompress.Apply(ctx, bm, buf, opts)
}

func (j *JPEG) CanEncode(format core.Format) bool { return format == core.FormatJPEG }

func (j *JPEG) Encode(ctx context.Context, bm *core.Bitmap, format core.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	if !j.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "jpeg.encode", apperrors.ErrEncodeUnsupported)
	}
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "jpeg.encode", apperrors.ErrEmptyInput)
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, bm.Image, &jpeg.Options{Quality: j.DefaultQuality}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	return out.Bytes(), nil
}

func (j *JPEG) CanIncrementalDecode(data []byte) bool { return j.CanDecode(data) }

func (j *JPEG) NewSession() core.ProgressiveSession {
	return newIncrementalSession(core.FormatJPEG,
		func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
		func(r *bytes.Reader) (image.Config, error) { return jpeg.DecodeConfig(r) },
	)
}
