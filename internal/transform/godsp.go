package transform

import (
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// goDSPProvider wraps the plan-free FFT2/IFFT2 functions from
// github.com/mjibson/go-dsp. Slower than the planned provider but
// always available; it is the degraded path the planner falls back to.
// go-dsp's IFFT already carries the 1/N scaling per axis, matching the
// package-wide normalization convention.
type goDSPProvider struct {
	threads int
}

var workerPoolOnce sync.Once

func newGoDSPProvider(threads int) *goDSPProvider {
	p := &goDSPProvider{threads: threads}
	// Worker count is fixed at provider initialization; changing it
	// mid-run is unsupported.
	workerPoolOnce.Do(func() {
		if threads > 0 {
			fft.SetWorkerPoolSize(threads)
		}
	})
	return p
}

func (p *goDSPProvider) Name() string    { return LibGoDSP }
func (p *goDSPProvider) Available() bool { return true }

func (p *goDSPProvider) NewPlan(h, w int) (Plan, error) {
	if h < 1 || w < 1 {
		return nil, ErrInvalidShape
	}
	return &goDSPPlan{h: h, w: w, rows: make([][]complex128, h)}, nil
}

type goDSPPlan struct {
	h, w int
	rows [][]complex128
}

func (pl *goDSPPlan) matrix(data []complex128) [][]complex128 {
	for y := 0; y < pl.h; y++ {
		pl.rows[y] = data[y*pl.w : (y+1)*pl.w]
	}
	return pl.rows
}

func (pl *goDSPPlan) Forward(data []complex128) error {
	if len(data) != pl.h*pl.w {
		return ErrShapeMismatch
	}
	out := fft.FFT2(pl.matrix(data))
	for y := 0; y < pl.h; y++ {
		copy(data[y*pl.w:(y+1)*pl.w], out[y])
	}
	return nil
}

func (pl *goDSPPlan) Inverse(data []complex128) error {
	if len(data) != pl.h*pl.w {
		return ErrShapeMismatch
	}
	out := fft.IFFT2(pl.matrix(data))
	for y := 0; y < pl.h; y++ {
		copy(data[y*pl.w:(y+1)*pl.w], out[y])
	}
	return nil
}
