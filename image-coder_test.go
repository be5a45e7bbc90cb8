package imagecoder_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	imagecoder "github.com/Skryldev/image-coder"
	"github.com/Skryldev/image-coder/coders"
	"github.com/Skryldev/image-coder/config"
	"github.com/Skryldev/image-coder/core"
	apperrors "github.com/Skryldev/image-coder/errors"
	"github.com/Skryldev/image-coder/hooks"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newAlphaPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 50, G: 50, B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func newRedJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func newCoordinator(t *testing.T) *core.Coordinator {
	t.Helper()
	return imagecoder.New(imagecoder.DefaultConfig())
}

// ── Load ──────────────────────────────────────────────────────────────────────

func TestLoad_PNG_AlphaFromPixels(t *testing.T) {
	coord := newCoordinator(t)
	raw := newAlphaPNG(t, 32, 16)

	out, err := coord.Load(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bm := out.Bitmap
	if bm.Width() != 32 || bm.Height() != 16 {
		t.Errorf("dimensions %dx%d, want 32x16", bm.Width(), bm.Height())
	}
	if !bm.HasAlpha {
		t.Error("translucent PNG loaded with HasAlpha=false")
	}
	if out.Data.Format != core.FormatPNG {
		t.Errorf("canonical buffer format %s, want png", out.Data.Format)
	}
}

func TestLoad_JPEG_Opaque(t *testing.T) {
	coord := newCoordinator(t)
	out, err := coord.Load(context.Background(), newRedJPEG(t, 16, 16), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Bitmap.HasAlpha {
		t.Error("JPEG pixels are opaque, HasAlpha must be false")
	}
}

func TestLoad_NoCapableCoder(t *testing.T) {
	// Registry holds only the PNG coder; a well-formed JPEG must be refused.
	coord := imagecoder.NewEmpty(imagecoder.DefaultConfig())
	coord.Registry().Register(coders.NewPNG())

	_, err := coord.Load(context.Background(), newRedJPEG(t, 8, 8), nil)
	if !errors.Is(err, apperrors.ErrNoCapableCoder) {
		t.Errorf("error = %v, want ErrNoCapableCoder", err)
	}
}

func TestLoad_DecodeFailed(t *testing.T) {
	coord := newCoordinator(t)
	// PNG magic followed by garbage: a coder matches but cannot decode.
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0xCC}, 48)...)

	_, err := coord.Load(context.Background(), data, nil)
	if !errors.Is(err, apperrors.ErrDecodeFailed) {
		t.Errorf("error = %v, want ErrDecodeFailed", err)
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	coord := newCoordinator(t)
	if _, err := coord.Load(context.Background(), nil, nil); !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("error = %v, want ErrEmptyInput", err)
	}
}

func TestLoad_NeverPanicsOnGarbage(t *testing.T) {
	coord := newCoordinator(t)
	inputs := [][]byte{
		bytes.Repeat([]byte{0x00}, 128),
		[]byte("definitely not an image"),
		{0xFF, 0xD8}, // truncated jpeg magic
		append([]byte("GIF89a"), 0xFF, 0xFF),
	}
	for _, in := range inputs {
		if _, err := coord.Load(context.Background(), in, nil); err == nil {
			t.Errorf("Load(%q...) succeeded on garbage", in[:min(len(in), 6)])
		}
	}
}

func TestLoad_ScaleDown(t *testing.T) {
	cfg := imagecoder.DefaultConfig()
	cfg.MaxDecodedPixels = 4096 // tiny ceiling so the test image is oversized
	coord := imagecoder.New(cfg)

	out, err := coord.Load(context.Background(), newAlphaPNG(t, 256, 64), imagecoder.ScaleDown())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bm := out.Bitmap
	if bm.PixelArea() > 4096 {
		t.Errorf("scaled area %d exceeds ceiling 4096", bm.PixelArea())
	}
	ratio := float64(bm.Width()) / float64(bm.Height())
	if ratio < 3.96 || ratio > 4.04 {
		t.Errorf("aspect ratio %f drifted beyond 1%% from 4.0", ratio)
	}
	if !bm.HasAlpha {
		t.Error("downscaling dropped the alpha flag")
	}
}

func TestLoad_ScaleDownOff(t *testing.T) {
	cfg := imagecoder.DefaultConfig()
	cfg.MaxDecodedPixels = 4096
	coord := imagecoder.New(cfg)

	out, err := coord.Load(context.Background(), newAlphaPNG(t, 256, 64), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Bitmap.Width() != 256 || out.Bitmap.Height() != 64 {
		t.Errorf("dimensions changed without the scale-down option: %dx%d",
			out.Bitmap.Width(), out.Bitmap.Height())
	}
}

func TestLoad_UnknownOptionsIgnored(t *testing.T) {
	coord := newCoordinator(t)
	opts := imagecoder.Options(map[string]any{
		"futureOption":  42,
		"anotherToggle": true,
	})
	if _, err := coord.Load(context.Background(), newAlphaPNG(t, 4, 4), opts); err != nil {
		t.Errorf("unknown options rejected: %v", err)
	}
}

func TestLoadReader_ByteCap(t *testing.T) {
	cfg := imagecoder.DefaultConfig()
	cfg.MaxImageBytes = 64
	coord := imagecoder.New(cfg)

	_, err := coord.LoadReader(context.Background(), bytes.NewReader(newAlphaPNG(t, 64, 64)), nil)
	if !errors.Is(err, apperrors.ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
}

// ── Encode ────────────────────────────────────────────────────────────────────

func TestEncode_RoundTrip(t *testing.T) {
	coord := newCoordinator(t)
	out, err := coord.Load(context.Background(), newAlphaPNG(t, 12, 12), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf, err := coord.Encode(context.Background(), out.Bitmap, imagecoder.JPEG)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Format != core.FormatJPEG {
		t.Errorf("buffer format %s, want jpeg", buf.Format)
	}
	if got := imagecoder.Sniff(buf.Data); got != core.FormatJPEG {
		t.Errorf("encoded bytes sniff as %s, want jpeg", got)
	}
}

func TestEncode_UnsupportedTarget(t *testing.T) {
	coord := newCoordinator(t)
	bm := &core.Bitmap{Image: image.NewNRGBA(image.Rect(0, 0, 2, 2)), Orientation: 1}

	_, err := coord.Encode(context.Background(), bm, core.FormatPDF)
	if !errors.Is(err, apperrors.ErrEncodeUnsupported) {
		t.Errorf("error = %v, want ErrEncodeUnsupported", err)
	}
}

// ── Streaming ─────────────────────────────────────────────────────────────────

func TestStream_ProgressivePNG(t *testing.T) {
	coord := newCoordinator(t)
	full := newAlphaPNG(t, 24, 24)
	stream := coord.BeginStream()
	defer stream.Close()

	ctx := context.Background()

	// First sliver: insufficient, not an error.
	bm, err := stream.Feed(ctx, full[:8], false)
	if err != nil {
		t.Fatalf("first feed: %v", err)
	}
	if bm != nil {
		t.Fatal("8 bytes produced a bitmap")
	}

	// Middle of the file.
	if _, err := stream.Feed(ctx, full[8:len(full)/2], false); err != nil {
		t.Fatalf("second feed: %v", err)
	}

	// Final chunk.
	bm, err = stream.Feed(ctx, full[len(full)/2:], true)
	if err != nil {
		t.Fatalf("final feed: %v", err)
	}
	if bm == nil || bm.Width() != 24 || bm.Height() != 24 {
		t.Fatalf("final bitmap = %v, want 24x24", bm)
	}
	if stream.BytesFed() != int64(len(full)) {
		t.Errorf("BytesFed = %d, want %d", stream.BytesFed(), len(full))
	}

	// Feeding past the end is a stream error.
	if _, err := stream.Feed(ctx, []byte{0x00}, true); !errors.Is(err, apperrors.ErrStreamClosed) {
		t.Errorf("post-finish feed error = %v, want ErrStreamClosed", err)
	}
}

func TestStream_SessionIsolation(t *testing.T) {
	coord := newCoordinator(t)
	a := newAlphaPNG(t, 10, 10)
	b := newAlphaPNG(t, 20, 20)

	sa := coord.BeginStream()
	sb := coord.BeginStream()
	defer sa.Close()
	defer sb.Close()

	ctx := context.Background()
	if _, err := sa.Feed(ctx, a[:len(a)/2], false); err != nil {
		t.Fatalf("stream A partial: %v", err)
	}
	if _, err := sb.Feed(ctx, b[:len(b)/2], false); err != nil {
		t.Fatalf("stream B partial: %v", err)
	}

	bmA, err := sa.Feed(ctx, a[len(a)/2:], true)
	if err != nil {
		t.Fatalf("stream A final: %v", err)
	}
	bmB, err := sb.Feed(ctx, b[len(b)/2:], true)
	if err != nil {
		t.Fatalf("stream B final: %v", err)
	}

	if bmA.Width() != 10 || bmA.Height() != 10 {
		t.Errorf("stream A bitmap %dx%d, want 10x10", bmA.Width(), bmA.Height())
	}
	if bmB.Width() != 20 || bmB.Height() != 20 {
		t.Errorf("stream B bitmap %dx%d, want 20x20", bmB.Width(), bmB.Height())
	}
}

func TestStream_MalformedTerminal(t *testing.T) {
	coord := newCoordinator(t)
	stream := coord.BeginStream()
	defer stream.Close()

	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x01}, 32)...)
	if _, err := stream.Feed(context.Background(), data, true); !errors.Is(err, apperrors.ErrDecodeFailed) {
		t.Errorf("error = %v, want ErrDecodeFailed", err)
	}
}

func TestStream_ByteCap(t *testing.T) {
	cfg := imagecoder.DefaultConfig()
	cfg.MaxImageBytes = 32
	coord := imagecoder.New(cfg)
	stream := coord.BeginStream()
	defer stream.Close()

	_, err := stream.Feed(context.Background(), make([]byte, 64), false)
	if !errors.Is(err, apperrors.ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
}

// ── Registration order ────────────────────────────────────────────────────────

// greedyCoder claims everything and records whether it decoded.
type greedyCoder struct {
	id      string
	decoded *string
}

func (g *greedyCoder) CanDecode(data []byte) bool { return len(data) > 0 }

func (g *greedyCoder) Decode(_ context.Context, _ []byte) (*core.Bitmap, error) {
	*g.decoded = g.id
	return &core.Bitmap{Image: image.NewNRGBA(image.Rect(0, 0, 1, 1)), Orientation: 1}, nil
}

func (g *greedyCoder) Decompress(_ context.Context, bm *core.Bitmap, buf *core.EncodedBuffer, _ core.DecodeOptions) (*core.DecompressedImage, error) {
	return &core.DecompressedImage{Bitmap: bm, Data: buf}, nil
}

func (g *greedyCoder) CanEncode(core.Format) bool { return false }

func (g *greedyCoder) Encode(_ context.Context, _ *core.Bitmap, _ core.Format) ([]byte, error) {
	return nil, apperrors.ErrEncodeUnsupported
}

func TestRegistrationOrderWins(t *testing.T) {
	var decoded string
	coord := imagecoder.NewEmpty(imagecoder.DefaultConfig())
	coord.Registry().Register(&greedyCoder{id: "first", decoded: &decoded})
	coord.Registry().Register(&greedyCoder{id: "second", decoded: &decoded})

	if _, err := coord.Load(context.Background(), []byte("anything"), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if decoded != "first" {
		t.Errorf("decoded by %q, want the first-registered coder", decoded)
	}
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestLoad_ConcurrentSafety(t *testing.T) {
	coord := newCoordinator(t)
	pngData := newAlphaPNG(t, 32, 32)
	jpegData := newRedJPEG(t, 32, 32)

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			data := pngData
			if idx%2 == 1 {
				data = jpegData
			}
			_, errs[idx] = coord.Load(context.Background(), data, imagecoder.ScaleDown())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}
	if coord.LoadedCount() != goroutines {
		t.Errorf("LoadedCount = %d, want %d", coord.LoadedCount(), goroutines)
	}
}

// ── Config ────────────────────────────────────────────────────────────────────

func TestConfigValidate(t *testing.T) {
	if err := config.Validate(imagecoder.DefaultConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := imagecoder.DefaultConfig()
	bad.DefaultQuality = 150
	if err := config.Validate(bad); err == nil {
		t.Error("quality 150 accepted, want error")
	}

	bad = imagecoder.DefaultConfig()
	bad.MaxImageBytes = -1
	if err := config.Validate(bad); err == nil {
		t.Error("negative byte cap accepted, want error")
	}
}

// ── Observability ─────────────────────────────────────────────────────────────

func TestMetricsObserveOps(t *testing.T) {
	coord := newCoordinator(t)
	metrics := hooks.NewInMemoryMetrics()
	coord.SetMetrics(metrics)

	if _, err := coord.Load(context.Background(), newAlphaPNG(t, 4, 4), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap := metrics.Snapshot()
	if snap.OpCalls["decode"] == 0 {
		t.Error("decode op not recorded")
	}
	if snap.OpCalls["decompress"] == 0 {
		t.Error("decompress op not recorded")
	}
	if snap.TotalBytes == 0 {
		t.Error("throughput bytes not recorded")
	}
}
