package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when the requested range has min >= max
	// or non-positive bounds. It is rejected before any decode or encode work.
	ErrInvalidRange = errors.New("invalid size range: min must be positive and less than max")
	// ErrDecode is returned when the input bytes cannot be decoded
	ErrDecode = errors.New("cannot decode input image")
)

// Status classifies the terminal outcome of a search. BelowMin and AboveMax
// are not failures: the result still carries the best candidate found.
type Status int

const (
	// WithinRange means the final encoding satisfies both bounds
	WithinRange Status = iota
	// BelowMin means the final encoding is smaller than the requested minimum
	BelowMin
	// AboveMax means the final encoding is larger than the requested maximum
	AboveMax
)

func (s Status) String() string {
	switch s {
	case WithinRange:
		return "within_range"
	case BelowMin:
		return "below_min"
	case AboveMax:
		return "above_max"
	}
	return "unknown"
}

// Range is the caller-requested inclusive size window, in kilobytes.
type Range struct {
	MinKB int
	MaxKB int
}

// Validate rejects ranges the engine cannot work with
func (r Range) Validate() error {
	if r.MinKB <= 0 || r.MaxKB <= 0 || r.MinKB >= r.MaxKB {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether sizeKB lies inside the window
func (r Range) Contains(sizeKB int) bool {
	return sizeKB >= r.MinKB && sizeKB <= r.MaxKB
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]KB", r.MinKB, r.MaxKB)
}

// Result is the terminal output of one search. Bytes is always usable,
// regardless of Status.
type Result struct {
	Bytes   []byte
	SizeKB  int
	Status  Status
	Range   Range
	Width   int
	Height  int
	Quality float64
	// Encodes is the total number of encode attempts performed
	Encodes int
}

// Message returns a human-readable explanation when the range was not hit,
// and "" for a WithinRange result.
func (r *Result) Message() string {
	switch r.Status {
	case BelowMin:
		return fmt.Sprintf("could not reach minimum size of %dKB; best result: %dKB", r.Range.MinKB, r.SizeKB)
	case AboveMax:
		return fmt.Sprintf("could not get below maximum size of %dKB; best result: %dKB", r.Range.MaxKB, r.SizeKB)
	}
	return ""
}

// EstimateKB returns the size of an encoded buffer in kilobytes, rounded to
// the nearest integer. It measures the true binary length, never a base64 or
// otherwise transcoded form.
func EstimateKB(b []byte) int {
	return (len(b) + 512) / 1024
}
