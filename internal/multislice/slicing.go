package multislice

import (
	"fmt"
	"math"
)

// Slice is one projected-potential layer along the propagation axis.
// Built once per specimen configuration and consumed read-only.
type Slice struct {
	// Potential is the projected potential in volt-angstrom, flattened
	// H*W row-major. A nil potential is vacuum.
	Potential []float64

	// Absorption is the optional imaginary (absorptive) part, same
	// layout as Potential.
	Absorption []float64

	// Thickness is the slice extent along the beam in angstrom.
	Thickness float64
}

// SliceStack is the ordered sequence of slices the engine propagates
// through. Never mutated during propagation.
type SliceStack struct {
	Slices []Slice
	H, W   int
}

func NewSliceStack(h, w int, slices []Slice) (*SliceStack, error) {
	if len(slices) == 0 {
		return nil, ErrEmptyStack
	}
	n := h * w
	for i, s := range slices {
		if s.Thickness <= 0 {
			return nil, fmt.Errorf("%w: slice %d thickness %g", ErrThicknessMetadata, i, s.Thickness)
		}
		if s.Potential != nil && len(s.Potential) != n {
			return nil, fmt.Errorf("%w: slice %d potential has %d values, grid is %dx%d",
				ErrGridMismatch, i, len(s.Potential), h, w)
		}
		if s.Absorption != nil && len(s.Absorption) != n {
			return nil, fmt.Errorf("%w: slice %d absorption has %d values, grid is %dx%d",
				ErrGridMismatch, i, len(s.Absorption), h, w)
		}
	}
	return &SliceStack{Slices: slices, H: h, W: w}, nil
}

// Depth is the summed thickness of all slices.
func (s *SliceStack) Depth() float64 {
	var d float64
	for _, sl := range s.Slices {
		d += sl.Thickness
	}
	return d
}

// CheckDepth verifies the thickness metadata against a declared
// specimen depth.
func (s *SliceStack) CheckDepth(depth float64) error {
	got := s.Depth()
	if math.Abs(got-depth) > 1e-6*math.Max(1, math.Abs(depth)) {
		return fmt.Errorf("%w: slices sum to %g, declared depth %g", ErrThicknessMetadata, got, depth)
	}
	return nil
}

// UniformThicknesses splits a specimen depth into equal slices no
// thicker than the target, equalizing the remainder across all slices.
func UniformThicknesses(target, depth float64) ([]float64, error) {
	if target <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: target %g depth %g", ErrThicknessMetadata, target, depth)
	}
	n := int(math.Ceil(depth / target))
	if n < 1 {
		n = 1
	}
	dz := depth / float64(n)
	out := make([]float64, n)
	for i := range out {
		out[i] = dz
	}
	return out, nil
}
