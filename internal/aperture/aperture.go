// Package aperture builds and applies reciprocal-space masks. The
// antialias mask suppresses frequencies near the Nyquist limit so the
// FFT's implicit periodicity cannot wrap scattered intensity back into
// the usable band.
package aperture

import (
	"fmt"
	"math"

	"github.com/ojholm/temsim/internal/diag"
	"github.com/ojholm/temsim/internal/wave"
)

// DefaultCutoff is the usable fraction of the Nyquist disk.
const DefaultCutoff = 2.0 / 3.0

// DefaultTaper is the cosine roll-off width as a fraction of Nyquist.
const DefaultTaper = 0.01

// Mask is a real-valued reciprocal-space window in [0,1], stored in FFT
// layout to match forward-transform output.
type Mask struct {
	Data []float64
	H, W int

	// Degenerate marks a pass-all mask from an overspecified grid.
	Degenerate bool
}

// BuildAntialias constructs the antialias mask for an h by w grid with
// the given real-space sampling. cutoff scales the Nyquist disk
// (elliptical for anisotropic sampling); taper is the width of the
// cosine edge. A cutoff above 1 yields a pass-all mask and an
// overspecified-grid warning rather than an error.
func BuildAntialias(h, w int, samplingX, samplingY, cutoff, taper float64, sink diag.Sink) (*Mask, error) {
	if h < 1 || w < 1 {
		return nil, fmt.Errorf("aperture: invalid mask shape %dx%d", h, w)
	}
	if samplingX <= 0 || samplingY <= 0 {
		return nil, fmt.Errorf("aperture: sampling must be positive, got %g x %g", samplingX, samplingY)
	}
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	if taper < 0 {
		taper = DefaultTaper
	}

	m := &Mask{Data: make([]float64, h*w), H: h, W: w}

	if cutoff > 1 {
		diag.Warnf(sink, diag.OverspecifiedGrid,
			"antialias cutoff %.3g exceeds usable bandwidth, mask is pass-all", cutoff)
		for i := range m.Data {
			m.Data[i] = 1
		}
		m.Degenerate = true
		return m, nil
	}

	fx := wave.Freq(w, samplingX)
	fy := wave.Freq(h, samplingY)
	nx := wave.Nyquist(samplingX)
	ny := wave.Nyquist(samplingY)

	for y := 0; y < h; y++ {
		ry := fy[y] / ny
		for x := 0; x < w; x++ {
			rx := fx[x] / nx
			r := math.Hypot(rx, ry)
			m.Data[y*w+x] = edge(r, cutoff, taper)
		}
	}
	return m, nil
}

// edge is 1 up to the cutoff, rolls off with a half cosine over the
// taper band outside it, and is 0 at and beyond cutoff+taper.
func edge(r, cutoff, taper float64) float64 {
	if taper == 0 {
		if r <= cutoff {
			return 1
		}
		return 0
	}
	switch {
	case r <= cutoff:
		return 1
	case r >= cutoff+taper:
		return 0
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(r-cutoff)/taper))
	}
}

// Apply multiplies each batch element of the spectrum by the mask.
// Applying the same mask twice is idempotent only on its pass/stop
// regions; the engine applies it once per slice.
func (m *Mask) Apply(spectrum *wave.Wave) error {
	if spectrum.H != m.H || spectrum.W != m.W {
		return fmt.Errorf("aperture: mask %dx%d does not match spectrum %dx%d",
			m.H, m.W, spectrum.H, spectrum.W)
	}
	for _, d := range spectrum.Data {
		for i, v := range m.Data {
			d[i] *= complex(v, 0)
		}
	}
	return nil
}
