package config

import "errors"

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Config{} and override only what they need.
type Config struct {
	// MaxDecodedPixels is the pixel-area ceiling applied when a load is
	// invoked with the scale-down option.  0 resolves to DefaultMaxDecodedPixels.
	MaxDecodedPixels int

	// Default encode quality (1-100) used by lossy coders when the caller
	// does not override it.
	DefaultQuality int

	// MaxImageBytes caps how many bytes a reader-based load or a streaming
	// session will accept.  0 = no limit.
	MaxImageBytes int64

	// ChunkSize is the read granularity for reader-based loads; default 32 KiB.
	ChunkSize int

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// DefaultMaxDecodedPixels is the pixel-area ceiling used when a caller asks
// for large-image downscaling without configuring one: 4096x4096.
const DefaultMaxDecodedPixels = 4096 * 4096

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		MaxDecodedPixels: DefaultMaxDecodedPixels,
		DefaultQuality:   85,
		ChunkSize:        32 * 1024,
		LogLevel:         "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.MaxDecodedPixels < 0 {
		return errors.New("config: MaxDecodedPixels must not be negative")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("config: MaxImageBytes must not be negative")
	}
	return nil
}
