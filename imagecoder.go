// Package imagecoder is an extensible image coding layer: it decodes
// arbitrary compressed image bytes into bitmaps, re-encodes bitmaps, and
// incrementally decodes streamed downloads, dispatching to whichever
// registered coder claims the sniffed content.
package imagecoder

import (
	"context"
	"io"

	"github.com/Skryldev/image-coder/coders"
	"github.com/Skryldev/image-coder/config"
	"github.com/Skryldev/image-coder/core"
	"github.com/Skryldev/image-coder/sniff"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	GIF  = core.FormatGIF
	TIFF = core.FormatTIFF
	WebP = core.FormatWebP
	HEIC = core.FormatHEIC
	BMP  = core.FormatBMP
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// New creates a Coordinator with the built-in coders registered.  The
// registration order is the resolution order: PNG, JPEG, GIF, WebP, BMP,
// TIFF, HEIC.  Register additional coders (e.g. the vips backend) on the
// returned coordinator's Registry; appending places them after the built-ins,
// Replace lets a host reorder entirely.
func New(cfg config.Config) *core.Coordinator {
	reg := core.NewRegistry()
	reg.Register(coders.NewPNG())
	reg.Register(coders.NewJPEG(cfg.DefaultQuality))
	reg.Register(coders.NewGIF())
	reg.Register(coders.NewWebP(cfg.DefaultQuality))
	reg.Register(coders.NewBMP())
	reg.Register(coders.NewTIFF())
	reg.Register(coders.NewHEIC())
	return core.New(cfg, reg)
}

// NewEmpty creates a Coordinator with no coders registered; the host supplies
// the full set via the registry.
func NewEmpty(cfg config.Config) *core.Coordinator {
	return core.New(cfg, core.NewRegistry())
}

// Sniff classifies data by its magic bytes.
func Sniff(data []byte) core.Format { return core.Format(sniff.Detect(data)) }

// Options builds a DecodeOptions map; use ScaleDown for the common case.
func Options(kv map[string]any) core.DecodeOptions { return core.DecodeOptions(kv) }

// ScaleDown returns options requesting large-image downscaling.
func ScaleDown() core.DecodeOptions {
	return core.DecodeOptions{core.OptionScaleDownLargeImages: true}
}

// Load is a convenience wrapper over Coordinator.Load.
func Load(ctx context.Context, c *core.Coordinator, data []byte) (*core.DecompressedImage, error) {
	return c.Load(ctx, data, nil)
}

// LoadReader drains r and loads the result through c.
func LoadReader(ctx context.Context, c *core.Coordinator, r io.Reader) (*core.DecompressedImage, error) {
	return c.LoadReader(ctx, r, nil)
}
