package transform

import (
	"errors"
	"fmt"
)

// Sentinel errors for transform execution and planning.
var (
	// ErrLibraryUnavailable is returned when the requested FFT library
	// cannot be used and fallback is disabled.
	ErrLibraryUnavailable = errors.New("transform: requested library unavailable")

	// ErrShapeMismatch is returned when data length does not match the
	// plan's grid.
	ErrShapeMismatch = errors.New("transform: data length does not match plan shape")

	// ErrInvalidShape is returned for non-positive grid dimensions.
	ErrInvalidShape = errors.New("transform: invalid grid shape")
)

// TransformError carries the plan key of a failed FFT execution so the
// offending shape/precision/device/library combination is diagnosable.
type TransformError struct {
	Key     PlanKey
	Wrapped error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform: %v (shape=%dx%d precision=%s device=%s library=%s)",
		e.Wrapped, e.Key.H, e.Key.W, e.Key.Precision, e.Key.Device, e.Key.Library)
}

func (e *TransformError) Unwrap() error { return e.Wrapped }
