// Package transform abstracts 2D FFT execution over interchangeable
// libraries with cached, reusable plans. The forward transform is the
// unnormalized DFT; the inverse scales by 1/(H*W), so a forward/inverse
// round trip is the identity up to floating-point rounding.
package transform

import "github.com/ojholm/temsim/internal/compute"

// Provider is one FFT library. Selection happens once at initialization
// so the per-slice hot loop carries no dispatch branching.
type Provider interface {
	Name() string
	Available() bool
	// NewPlan builds an execution plan bound to an h by w grid.
	NewPlan(h, w int) (Plan, error)
}

// Plan executes transforms on flattened row-major h*w data, in place.
// A Plan is not safe for concurrent use; the cache pools instances.
type Plan interface {
	Forward(data []complex128) error
	Inverse(data []complex128) error
}

// PlanKey identifies a cached plan.
type PlanKey struct {
	H, W      int
	Precision compute.Precision
	Device    compute.Device
	Library   string
}

// Libraries, in default preference order. "gonum" carries per-shape
// plan state (gonum.org/v1/gonum/dsp/fourier); "godsp" is the
// plan-free pure-function fallback (github.com/mjibson/go-dsp).
const (
	LibGonum = "gonum"
	LibGoDSP = "godsp"
)

// Candidates returns the providers to try, with the requested library
// first. Empty or "default" means the built-in preference order.
func Candidates(library string, threads int) []Provider {
	gonum := newGonumProvider()
	godsp := newGoDSPProvider(threads)
	switch library {
	case LibGoDSP:
		return []Provider{godsp, gonum}
	default:
		return []Provider{gonum, godsp}
	}
}

// KnownLibrary reports whether name maps to a provider.
func KnownLibrary(name string) bool {
	switch name {
	case "", "default", LibGonum, LibGoDSP:
		return true
	}
	return false
}
