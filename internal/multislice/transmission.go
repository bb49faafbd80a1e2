package multislice

import (
	"math"
	"math/cmplx"

	"github.com/ojholm/temsim/internal/wave"
)

const restEnergyEV = 510998.95 // electron rest energy m0*c^2

// InteractionParameter returns the beam-potential coupling constant
// sigma in radians per volt-angstrom for the given acceleration energy
// in eV, with the relativistic correction.
func InteractionParameter(energyEV float64) float64 {
	lambda := wave.Wavelength(energyEV)
	return 2 * math.Pi / (lambda * energyEV) *
		(restEnergyEV + energyEV) / (2*restEnergyEV + energyEV)
}

// transmissionKernel builds the per-slice multiplicative factor
// exp(i*sigma*V - sigma*W) shared across all batch elements. A vacuum
// slice returns nil, meaning no transmission step.
func transmissionKernel(s Slice, sigma float64) []complex128 {
	if s.Potential == nil && s.Absorption == nil {
		return nil
	}
	n := len(s.Potential)
	if n == 0 {
		n = len(s.Absorption)
	}
	t := make([]complex128, n)
	for i := range t {
		var phase, damp float64
		if s.Potential != nil {
			phase = sigma * s.Potential[i]
		}
		if s.Absorption != nil {
			damp = sigma * s.Absorption[i]
		}
		t[i] = cmplx.Exp(complex(-damp, phase))
	}
	return t
}

// transmit applies the transmission kernel pointwise to every batch
// element of the real-space wavefunction.
func transmit(wv *wave.Wave, kernel []complex128) {
	if kernel == nil {
		return
	}
	for _, d := range wv.Data {
		for i := range d {
			d[i] *= kernel[i]
		}
	}
}
