package parser

import (
	"errors"
	"fmt"
)

// File-level failures. They abort a single upload and never touch a
// previously loaded dataset.
var (
	ErrHeaderNotFound = errors.New("could not find valid header line")
	ErrEmptyResult    = errors.New("no valid data found")
	ErrUnreadable     = errors.New("unreadable file")
	ErrUnsupported    = errors.New("unsupported file type")
)

// Row-level rejection reasons.
var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidLCP    = errors.New("invalid LCP")
	ErrInvalidCLS    = errors.New("invalid CLS")
	ErrMalformedLine = errors.New("malformed line")
)

// FileError is the structured failure returned for a whole upload.
type FileError struct {
	Source string
	Err    error
	Detail string
}

func (e *FileError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s. %s", msg, e.Detail)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s", e.Source, msg)
	}
	return msg
}

func (e *FileError) Unwrap() error { return e.Err }

// Code returns a stable identifier for the failure class.
func (e *FileError) Code() string {
	switch {
	case errors.Is(e.Err, ErrHeaderNotFound):
		return "HEADER_NOT_FOUND"
	case errors.Is(e.Err, ErrEmptyResult):
		return "EMPTY_RESULT"
	case errors.Is(e.Err, ErrUnsupported):
		return "UNSUPPORTED_FILE"
	case errors.Is(e.Err, ErrUnreadable):
		return "UNREADABLE_FILE"
	default:
		return "PARSE_FAILED"
	}
}

const expectedFormat = "Expected format:\n\n# Brand: BrandName,,,\ndate,largestContentfulPaint,cumulativeLayoutShift,Release"
