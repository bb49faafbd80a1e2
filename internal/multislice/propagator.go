package multislice

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/ojholm/temsim/internal/wave"
)

// Propagator holds the free-space Fresnel kernels for one grid
// geometry, wavelength, and beam tilt. Kernels are cached per slice
// thickness and reused; a geometry change requires a new Propagator.
type Propagator struct {
	h, w                 int
	samplingX, samplingY float64
	wavelength           float64
	tiltX, tiltY         float64

	fx, fy []float64

	mu      sync.Mutex
	kernels map[float64][]complex128
}

func NewPropagator(wv *wave.Wave, tiltX, tiltY float64) *Propagator {
	return &Propagator{
		h:          wv.H,
		w:          wv.W,
		samplingX:  wv.SamplingX,
		samplingY:  wv.SamplingY,
		wavelength: wv.Wavelength(),
		tiltX:      tiltX,
		tiltY:      tiltY,
		fx:         wave.Freq(wv.W, wv.SamplingX),
		fy:         wave.Freq(wv.H, wv.SamplingY),
		kernels:    make(map[float64][]complex128),
	}
}

// Matches reports whether the cached kernels are valid for this wave.
func (p *Propagator) Matches(wv *wave.Wave) bool {
	return p.h == wv.H && p.w == wv.W &&
		p.samplingX == wv.SamplingX && p.samplingY == wv.SamplingY &&
		p.wavelength == wv.Wavelength()
}

// Kernel returns the reciprocal-space propagation factor for one slice
// thickness dz, exp(-i*pi*lambda*k^2*dz) with a small-angle tilt term.
func (p *Propagator) Kernel(dz float64) []complex128 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if k, ok := p.kernels[dz]; ok {
		return k
	}
	k := make([]complex128, p.h*p.w)
	tx := math.Tan(p.tiltX)
	ty := math.Tan(p.tiltY)
	for y := 0; y < p.h; y++ {
		ky := p.fy[y]
		for x := 0; x < p.w; x++ {
			kx := p.fx[x]
			phase := -math.Pi*p.wavelength*(kx*kx+ky*ky)*dz +
				2*math.Pi*dz*(kx*tx+ky*ty)
			k[y*p.w+x] = cmplx.Exp(complex(0, phase))
		}
	}
	p.kernels[dz] = k
	return k
}

// Apply multiplies each batch element of the spectrum by the kernel
// for thickness dz.
func (p *Propagator) Apply(spectrum *wave.Wave, dz float64) {
	k := p.Kernel(dz)
	for _, d := range spectrum.Data {
		for i := range d {
			d[i] *= k[i]
		}
	}
}
