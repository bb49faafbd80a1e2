// Package specimen builds synthetic test specimens and probes. Real
// structure ingestion (crystallographic files) is an external concern;
// this package provides a deterministic Gaussian-atom lattice with
// frozen-phonon displacements so the engine can be driven end to end.
package specimen

import (
	"math"
	"math/rand"

	"github.com/ojholm/temsim/internal/multislice"
	"github.com/ojholm/temsim/internal/wave"
)

// Lattice is a rectangular grid of identical atoms, sliced uniformly
// along the beam. It implements the scheduler's Source contract: probe
// and potential construction are deterministic per (index, seed).
type Lattice struct {
	H, W                 int
	SamplingX, SamplingY float64
	EnergyEV             float64

	// SpacingX, SpacingY are atom spacings in angstrom.
	SpacingX, SpacingY float64

	// Peak is the projected-potential maximum per atom per slice in
	// volt-angstrom; Width is the Gaussian radius in angstrom.
	Peak, Width float64

	// Displacement is the rms frozen-phonon displacement in angstrom.
	Displacement float64

	// Thicknesses are the slice thicknesses in angstrom.
	Thicknesses []float64

	// ProbeWidth is the Gaussian probe radius in angstrom; probes scan
	// evenly along x at mid-height.
	ProbeWidth float64

	// Probes is the number of scan positions.
	Probes int
}

func (l *Lattice) Grid() (int, int) { return l.H, l.W }

// Entrance builds unit-peak Gaussian probes for scan positions
// [lo, hi). Probe placement is independent of chunk boundaries.
func (l *Lattice) Entrance(lo, hi, phonon int, seed int64) (*wave.Wave, error) {
	wv, err := wave.New(hi-lo, l.H, l.W, l.SamplingX, l.SamplingY, l.EnergyEV)
	if err != nil {
		return nil, err
	}
	extentX := float64(l.W) * l.SamplingX
	cy := float64(l.H) / 2 * l.SamplingY
	w2 := l.ProbeWidth * l.ProbeWidth
	for b := range wv.Data {
		probe := lo + b
		cx := (float64(probe) + 0.5) * extentX / float64(l.Probes)
		for y := 0; y < l.H; y++ {
			dy := float64(y)*l.SamplingY - cy
			for x := 0; x < l.W; x++ {
				dx := float64(x)*l.SamplingX - cx
				wv.Data[b][y*l.W+x] = complex(math.Exp(-(dx*dx+dy*dy)/(2*w2)), 0)
			}
		}
	}
	return wv, nil
}

// Potential builds the sliced projected potential for one frozen-phonon
// realization. Atom displacements are drawn from the given seed only,
// so the same (phonon, seed) always yields the same stack.
func (l *Lattice) Potential(phonon int, seed int64) (*multislice.SliceStack, error) {
	rng := rand.New(rand.NewSource(seed))
	slices := make([]multislice.Slice, len(l.Thicknesses))
	for i, dz := range l.Thicknesses {
		slices[i] = multislice.Slice{
			Potential: l.projected(rng),
			Thickness: dz,
		}
	}
	return multislice.NewSliceStack(l.H, l.W, slices)
}

// projected renders one slice of displaced Gaussian atoms.
func (l *Lattice) projected(rng *rand.Rand) []float64 {
	pot := make([]float64, l.H*l.W)
	extentX := float64(l.W) * l.SamplingX
	extentY := float64(l.H) * l.SamplingY
	w2 := l.Width * l.Width

	for ay := l.SpacingY / 2; ay < extentY; ay += l.SpacingY {
		for ax := l.SpacingX / 2; ax < extentX; ax += l.SpacingX {
			px := ax + rng.NormFloat64()*l.Displacement
			py := ay + rng.NormFloat64()*l.Displacement
			// Render within a few widths of the atom center.
			reach := 4 * l.Width
			x0 := int(math.Max(0, (px-reach)/l.SamplingX))
			x1 := int(math.Min(float64(l.W-1), (px+reach)/l.SamplingX))
			y0 := int(math.Max(0, (py-reach)/l.SamplingY))
			y1 := int(math.Min(float64(l.H-1), (py+reach)/l.SamplingY))
			for y := y0; y <= y1; y++ {
				dy := float64(y)*l.SamplingY - py
				for x := x0; x <= x1; x++ {
					dx := float64(x)*l.SamplingX - px
					pot[y*l.W+x] += l.Peak * math.Exp(-(dx*dx+dy*dy)/(2*w2))
				}
			}
		}
	}
	return pot
}
