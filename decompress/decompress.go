// Package decompress implements the post-decode normalization pass every
// coder applies: alpha detection, device-RGB conversion, orientation bake-in,
// and optional downscaling of oversized bitmaps.
package decompress

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-coder/config"
	"github.com/Skryldev/image-coder/core"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/sniff"
)

// deviceRGB is the shared device RGB color model all normalized bitmaps use.
var deviceRGB color.Model = color.NRGBAModel

// DeviceRGB returns the device RGB color model singleton used when
// normalizing pixel formats.
func DeviceRGB() color.Model { return deviceRGB }

// step is one stage of the normalization chain.
type step interface {
	name() string
	apply(bm *core.Bitmap, opts core.DecodeOptions) (*core.Bitmap, error)
}

// The chain order matters: orientation and scaling operate on the NRGBA
// buffer the normalize stage produces.
var chain = []step{normalizeStep{}, orientStep{}, scaleStep{}}

// Apply runs the normalization chain on bm and returns the final bitmap plus
// the canonical bytes a cache should persist.  It is idempotent: re-applying
// with the same options changes neither dimensions nor the alpha flag.
func Apply(ctx context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, opts core.DecodeOptions) (*core.DecompressedImage, error) {
	if bm == nil || bm.Image == nil {
		return nil, apperrors.New(apperrors.CategoryDecompress, "decompress", apperrors.ErrEmptyInput)
	}

	current := bm
	for _, st := range chain {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryDecompress, st.name(), err)
		}
		next, err := st.apply(current, opts)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryDecompress, st.name(), err)
		}
		current = next
	}

	canonical := buf
	if canonical != nil && canonical.Format == core.FormatUndefined && len(canonical.Data) > 0 {
		canonical = core.NewEncodedBuffer(canonical.Data, core.Format(sniff.Detect(canonical.Data)))
	}
	return &core.DecompressedImage{Bitmap: current, Data: canonical}, nil
}

// HasAlphaPixels reports whether img actually contains a non-opaque pixel.
// The answer depends on pixel data only, never on the source format.
func HasAlphaPixels(img image.Image) bool {
	if img == nil {
		return false
	}
	if op, ok := img.(interface{ Opaque() bool }); ok {
		return !op.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

// ── normalize ─────────────────────────────────────────────────────────────────

// normalizeStep converts the bitmap to the device RGB pixel layout and
// recomputes the alpha flag from the converted pixels.
type normalizeStep struct{}

func (normalizeStep) name() string { return "decompress.normalize" }

func (normalizeStep) apply(bm *core.Bitmap, _ core.DecodeOptions) (*core.Bitmap, error) {
	src := bm.Image
	nrgba, ok := src.(*image.NRGBA)
	if !ok {
		bounds := src.Bounds()
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)
	}

	out := *bm
	out.Image = nrgba
	out.HasAlpha = HasAlphaPixels(nrgba)
	return &out, nil
}

// ── orientation ───────────────────────────────────────────────────────────────

// orientStep bakes the EXIF orientation into the pixel buffer and resets the
// tag so a second pass is a no-op.
type orientStep struct{}

func (orientStep) name() string { return "decompress.orient" }

func (orientStep) apply(bm *core.Bitmap, _ core.DecodeOptions) (*core.Bitmap, error) {
	out := *bm
	if bm.Orientation < 2 || bm.Orientation > 8 {
		out.Orientation = 1
		return &out, nil
	}
	src, ok := bm.Image.(*image.NRGBA)
	if !ok {
		return nil, apperrors.ErrInvalidDimensions
	}
	out.Image = orientNRGBA(src, bm.Orientation)
	out.Orientation = 1
	return &out, nil
}

// ── scale-down ────────────────────────────────────────────────────────────────

// scaleStep shrinks bitmaps whose pixel area exceeds the configured ceiling,
// preserving aspect ratio.  It only ever runs when the caller opted in.
type scaleStep struct{}

func (scaleStep) name() string { return "decompress.scale" }

func (scaleStep) apply(bm *core.Bitmap, opts core.DecodeOptions) (*core.Bitmap, error) {
	if !opts.ScaleDownLargeImages() {
		return bm, nil
	}
	budget := opts.MaxDecodedPixels(config.DefaultMaxDecodedPixels)
	w, h := bm.Width(), bm.Height()
	area := w * h
	if area <= budget || area == 0 {
		return bm, nil
	}

	// Flooring both axes keeps the scaled area at or under the budget.
	factor := math.Sqrt(float64(budget) / float64(area))
	dw := int(float64(w) * factor)
	dh := int(float64(h) * factor)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), bm.Image, bm.Image.Bounds(), xdraw.Src, nil)

	out := *bm
	out.Image = dst
	return &out, nil
}
