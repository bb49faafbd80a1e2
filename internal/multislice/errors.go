package multislice

import "errors"

// Configuration errors surface immediately and are never retried.
var (
	// ErrGridMismatch indicates a slice stack whose grid does not match
	// the wavefunction it is applied to.
	ErrGridMismatch = errors.New("multislice: slice stack grid does not match wavefunction")

	// ErrThicknessMetadata indicates slice thicknesses inconsistent
	// with the declared specimen depth or slice count.
	ErrThicknessMetadata = errors.New("multislice: slice thickness metadata inconsistent")

	// ErrEmptyStack indicates a stack with no slices.
	ErrEmptyStack = errors.New("multislice: empty slice stack")
)
