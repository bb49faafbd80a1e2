// Package wave defines the complex electron wavefunction and its
// real/reciprocal-space sampling. A Wave carries a batch of independent
// 2D fields sharing one grid, energy, and sampling; the batch axis is
// the unit the scheduler parallelizes over.
package wave

import (
	"fmt"
	"math"
)

type Wave struct {
	// Data holds one flattened H*W row-major field per batch element.
	Data [][]complex128

	H, W int

	// SamplingX, SamplingY are the real-space pixel sizes in angstrom.
	SamplingX, SamplingY float64

	// EnergyEV is the electron acceleration energy in electron volts.
	EnergyEV float64
}

func New(batch, h, w int, samplingX, samplingY, energyEV float64) (*Wave, error) {
	if batch < 1 || h < 1 || w < 1 {
		return nil, fmt.Errorf("wave: invalid shape batch=%d h=%d w=%d", batch, h, w)
	}
	if samplingX <= 0 || samplingY <= 0 {
		return nil, fmt.Errorf("wave: sampling must be positive, got %g x %g", samplingX, samplingY)
	}
	if energyEV <= 0 {
		return nil, fmt.Errorf("wave: energy must be positive, got %g", energyEV)
	}
	data := make([][]complex128, batch)
	for i := range data {
		data[i] = make([]complex128, h*w)
	}
	return &Wave{
		Data:      data,
		H:         h,
		W:         w,
		SamplingX: samplingX,
		SamplingY: samplingY,
		EnergyEV:  energyEV,
	}, nil
}

// Plane fills every batch element with a unit plane wave.
func (wv *Wave) Plane() *Wave {
	for _, d := range wv.Data {
		for i := range d {
			d[i] = 1
		}
	}
	return wv
}

func (wv *Wave) Batch() int { return len(wv.Data) }

// Clone returns a deep copy sharing no storage with the receiver.
func (wv *Wave) Clone() *Wave {
	c := *wv
	c.Data = make([][]complex128, len(wv.Data))
	for i, d := range wv.Data {
		c.Data[i] = make([]complex128, len(d))
		copy(c.Data[i], d)
	}
	return &c
}

// Wavelength returns the relativistic electron wavelength in angstrom.
func (wv *Wave) Wavelength() float64 {
	return Wavelength(wv.EnergyEV)
}

// Wavelength converts acceleration energy in eV to wavelength in
// angstrom, including the relativistic correction.
func Wavelength(energyEV float64) float64 {
	return 12.2639 / math.Sqrt(energyEV+0.97845e-6*energyEV*energyEV)
}

// ExtentX and ExtentY are the real-space field of view in angstrom.
func (wv *Wave) ExtentX() float64 { return float64(wv.W) * wv.SamplingX }
func (wv *Wave) ExtentY() float64 { return float64(wv.H) * wv.SamplingY }

// Intensity returns |psi|^2 for one batch element.
func (wv *Wave) Intensity(batch int) []float64 {
	d := wv.Data[batch]
	out := make([]float64, len(d))
	for i, v := range d {
		re, im := real(v), imag(v)
		out[i] = re*re + im*im
	}
	return out
}

// SameGrid reports whether two waves share shape and sampling.
func (wv *Wave) SameGrid(o *Wave) bool {
	return wv.H == o.H && wv.W == o.W &&
		wv.SamplingX == o.SamplingX && wv.SamplingY == o.SamplingY
}

// Freq returns the FFT sample frequencies for n points with spacing d,
// in cycles per angstrom, in standard FFT layout (DC first, negative
// frequencies in the upper half).
func Freq(n int, d float64) []float64 {
	f := make([]float64, n)
	for i := range f {
		k := i
		if i >= (n+1)/2 {
			k = i - n
		}
		f[i] = float64(k) / (float64(n) * d)
	}
	return f
}

// Nyquist is the maximum representable spatial frequency for spacing d.
func Nyquist(d float64) float64 { return 1 / (2 * d) }
