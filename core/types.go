package core

import "image"

// Format identifies an image codec.  It is always derived from content
// sniffing, never from a file extension.
type Format string

const (
	FormatUndefined Format = "undefined"
	FormatJPEG      Format = "jpeg"
	FormatPNG       Format = "png"
	FormatGIF       Format = "gif"
	FormatTIFF      Format = "tiff"
	FormatWebP      Format = "webp"
	FormatHEIC      Format = "heic"
	FormatPDF       Format = "pdf"
	FormatSVG       Format = "svg"
	FormatBMP       Format = "bmp"
)

// MIMEType returns the MIME type for the format, or "application/octet-stream"
// when undefined.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatTIFF:
		return "image/tiff"
	case FormatWebP:
		return "image/webp"
	case FormatHEIC:
		return "image/heic"
	case FormatPDF:
		return "application/pdf"
	case FormatSVG:
		return "image/svg+xml"
	case FormatBMP:
		return "image/bmp"
	}
	return "application/octet-stream"
}

// FormatFromMIME maps a MIME type back to a Format tag.
func FormatFromMIME(ct string) Format {
	switch ct {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/gif":
		return FormatGIF
	case "image/tiff":
		return FormatTIFF
	case "image/webp":
		return FormatWebP
	case "image/heic", "image/heif":
		return FormatHEIC
	case "application/pdf":
		return FormatPDF
	case "image/svg+xml":
		return FormatSVG
	case "image/bmp":
		return FormatBMP
	}
	return FormatUndefined
}

// Bitmap is a decoded raster.  HasAlpha reflects the actual pixel data, not
// the source format: a coder must compute it by inspecting pixels.
type Bitmap struct {
	Image image.Image

	HasAlpha bool

	// Orientation is the EXIF orientation tag (1-8); 0 means unknown and is
	// treated as upright.
	Orientation int
}

// Width returns the pixel width, or 0 for an empty bitmap.
func (b *Bitmap) Width() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the pixel height, or 0 for an empty bitmap.
func (b *Bitmap) Height() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// PixelArea returns Width*Height.
func (b *Bitmap) PixelArea() int { return b.Width() * b.Height() }

// EncodedBuffer carries raw encoded bytes plus an optional format tag.
// Coders never mutate the byte slice in place; operations that normalize
// bytes return a new EncodedBuffer instead.
type EncodedBuffer struct {
	Data   []byte
	Format Format
}

// NewEncodedBuffer wraps data with a format tag.
func NewEncodedBuffer(data []byte, format Format) *EncodedBuffer {
	return &EncodedBuffer{Data: data, Format: format}
}

// Len returns the byte length, tolerating a nil receiver.
func (e *EncodedBuffer) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Data)
}

// DecompressedImage is the result of a Decompress call: the normalized bitmap
// plus the canonical byte buffer a cache should persist.  The buffer is the
// original one unless the coder re-pointed it at normalized bytes.
type DecompressedImage struct {
	Bitmap *Bitmap
	Data   *EncodedBuffer
}

// Recognized DecodeOptions keys.  Unknown keys are ignored, never rejected.
const (
	// OptionScaleDownLargeImages (bool): when true, Decompress downscales
	// bitmaps whose pixel area exceeds the configured ceiling.
	OptionScaleDownLargeImages = "scaleDownLargeImages"

	// OptionMaxDecodedPixels (int): the pixel-area ceiling used by the
	// scale-down pass.  The coordinator fills it from its config when the
	// caller leaves it unset.
	OptionMaxDecodedPixels = "maxDecodedPixels"
)

// DecodeOptions is an open-ended configuration map passed through decode and
// decompress.  Coders must ignore keys they do not recognize.
type DecodeOptions map[string]any

// ScaleDownLargeImages reports whether the scale-down option is set.
func (o DecodeOptions) ScaleDownLargeImages() bool {
	v, _ := o[OptionScaleDownLargeImages].(bool)
	return v
}

// MaxDecodedPixels returns the configured pixel ceiling, or fallback when the
// option is unset or not a positive int.
func (o DecodeOptions) MaxDecodedPixels(fallback int) int {
	if v, ok := o[OptionMaxDecodedPixels].(int); ok && v > 0 {
		return v
	}
	return fallback
}

// WithDefault returns options guaranteed to carry key; the receiver is not
// mutated when a copy is needed.
func (o DecodeOptions) WithDefault(key string, value any) DecodeOptions {
	if _, ok := o[key]; ok {
		return o
	}
	out := make(DecodeOptions, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[key] = value
	return out
}
