package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode     Category = "decode"
	CategoryDecompress Category = "decompress"
	CategoryEncode     Category = "encode"
	CategoryStream     Category = "stream"
	CategoryConfig     Category = "config"
	CategoryInput      Category = "input"
)

// CoderError is the structured error type used throughout the module.
type CoderError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *CoderError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *CoderError) Unwrap() error { return e.Err }

// New creates a CoderError.
func New(category Category, op string, err error) *CoderError {
	return &CoderError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var ce *CoderError
	if errors.As(err, &ce) {
		return ce.Category == cat
	}
	return false
}

// Sentinel errors for the user-visible failure taxonomy.
var (
	ErrNoCapableCoder    = errors.New("no capable coder for input")
	ErrDecodeFailed      = errors.New("decode failed")
	ErrEncodeUnsupported = errors.New("encode target unsupported")
	ErrEmptyInput        = errors.New("empty input")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrStreamClosed      = errors.New("stream closed")
	ErrTooLarge          = errors.New("input exceeds size limit")
)
