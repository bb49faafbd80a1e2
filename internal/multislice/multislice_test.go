package multislice

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/ojholm/temsim/internal/aperture"
	"github.com/ojholm/temsim/internal/compute"
	"github.com/ojholm/temsim/internal/diag"
	"github.com/ojholm/temsim/internal/transform"
	"github.com/ojholm/temsim/internal/wave"
)

func newTestEngine(t *testing.T, h, w int) *Engine {
	t.Helper()
	ctx := compute.NewContext(compute.Double, compute.CPU, transform.LibGonum, 1)
	tr, err := transform.New(ctx, transform.Planning{}, h, w, diag.Discard)
	if err != nil {
		t.Fatal(err)
	}
	mask, err := aperture.BuildAntialias(h, w, 0.1, 0.1, aperture.DefaultCutoff, aperture.DefaultTaper, diag.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(tr, mask)
}

func gaussianWave(t *testing.T, batch, h, w int) *wave.Wave {
	t.Helper()
	wv, err := wave.New(batch, h, w, 0.1, 0.1, 200e3)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range wv.Data {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dy := float64(y - h/2)
				dx := float64(x - w/2)
				d[y*w+x] = complex(math.Exp(-(dx*dx+dy*dy)/32), 0)
			}
		}
	}
	return wv
}

func TestInteractionParameter(t *testing.T) {
	// Reference value for 100 kV electrons, rad/(V*angstrom).
	sigma := InteractionParameter(100e3)
	if math.Abs(sigma-9.244e-4) > 1e-6 {
		t.Errorf("sigma(100kV) = %.6e, want about 9.244e-4", sigma)
	}
	// Sigma decreases with energy.
	if InteractionParameter(300e3) >= sigma {
		t.Error("sigma must decrease with acceleration energy")
	}
}

func TestUniformThicknesses(t *testing.T) {
	dz, err := UniformThicknesses(2.0, 7.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(dz) != 4 {
		t.Fatalf("expected 4 slices, got %d", len(dz))
	}
	var sum float64
	for _, d := range dz {
		if math.Abs(d-1.75) > 1e-12 {
			t.Errorf("expected equalized thickness 1.75, got %g", d)
		}
		sum += d
	}
	if math.Abs(sum-7.0) > 1e-12 {
		t.Errorf("thicknesses must sum to depth, got %g", sum)
	}

	if _, err := UniformThicknesses(0, 7.0); err == nil {
		t.Error("expected error for non-positive target")
	}
}

func TestStackValidation(t *testing.T) {
	if _, err := NewSliceStack(4, 4, nil); err != ErrEmptyStack {
		t.Errorf("expected ErrEmptyStack, got %v", err)
	}

	_, err := NewSliceStack(4, 4, []Slice{{Potential: make([]float64, 9), Thickness: 1}})
	if err == nil {
		t.Error("expected grid mismatch error")
	}

	_, err = NewSliceStack(4, 4, []Slice{{Thickness: 0}})
	if err == nil {
		t.Error("expected thickness metadata error")
	}

	stack, err := NewSliceStack(4, 4, []Slice{{Thickness: 1.5}, {Thickness: 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	if err := stack.CheckDepth(2.0); err != nil {
		t.Errorf("depth check should pass: %v", err)
	}
	if err := stack.CheckDepth(3.0); err == nil {
		t.Error("expected depth mismatch error")
	}
}

func TestPropagateNonMutation(t *testing.T) {
	e := newTestEngine(t, 16, 16)
	entrance := gaussianWave(t, 1, 16, 16)
	before := entrance.Clone()

	stack, _ := NewSliceStack(16, 16, []Slice{{Thickness: 2}})
	if _, err := e.Propagate(context.Background(), entrance, stack); err != nil {
		t.Fatal(err)
	}

	for i := range before.Data[0] {
		if entrance.Data[0][i] != before.Data[0][i] {
			t.Fatalf("entrance wave mutated at %d", i)
		}
	}
}

func TestPropagateDeterminism(t *testing.T) {
	e := newTestEngine(t, 16, 16)
	entrance := gaussianWave(t, 1, 16, 16)
	pot := make([]float64, 16*16)
	rng := rand.New(rand.NewSource(7))
	for i := range pot {
		pot[i] = 10 * rng.Float64()
	}
	stack, _ := NewSliceStack(16, 16, []Slice{
		{Potential: pot, Thickness: 1},
		{Potential: pot, Thickness: 1},
	})

	a, err := e.Propagate(context.Background(), entrance, stack)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Propagate(context.Background(), entrance, stack)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Data[0] {
		if a.Data[0][i] != b.Data[0][i] {
			t.Fatalf("repeated propagation not bit-identical at %d", i)
		}
	}
}

func TestVacuumSliceMatchesDirectFresnel(t *testing.T) {
	h, w := 32, 32
	e := newTestEngine(t, h, w)
	entrance := gaussianWave(t, 1, h, w)

	stack, _ := NewSliceStack(h, w, []Slice{{Thickness: 5}})
	exit, err := e.Propagate(context.Background(), entrance, stack)
	if err != nil {
		t.Fatal(err)
	}

	// Direct Fresnel propagation: forward, mask, kernel, inverse.
	direct := entrance.Clone()
	if err := e.tr.Forward(direct); err != nil {
		t.Fatal(err)
	}
	if err := e.mask.Apply(direct); err != nil {
		t.Fatal(err)
	}
	NewPropagator(direct, 0, 0).Apply(direct, 5)
	if err := e.tr.Inverse(direct); err != nil {
		t.Fatal(err)
	}

	for i := range exit.Data[0] {
		if cmplx.Abs(exit.Data[0][i]-direct.Data[0][i]) > 1e-12 {
			t.Fatalf("vacuum slice must equal direct Fresnel propagation (index %d)", i)
		}
	}
}

func TestPlaneWaveUnchangedByVacuum(t *testing.T) {
	h, w := 16, 16
	e := newTestEngine(t, h, w)
	entrance, _ := wave.New(1, h, w, 0.1, 0.1, 200e3)
	entrance.Plane()

	stack, _ := NewSliceStack(h, w, []Slice{{Thickness: 10}, {Thickness: 10}})
	exit, err := e.Propagate(context.Background(), entrance, stack)
	if err != nil {
		t.Fatal(err)
	}
	// Only the DC component is populated and the kernel phase at DC is
	// zero, so vacuum leaves a plane wave untouched.
	for i, v := range exit.Data[0] {
		if cmplx.Abs(v-1) > 1e-10 {
			t.Fatalf("plane wave changed by vacuum at %d: %v", i, v)
		}
	}
}

func TestBatchUniformity(t *testing.T) {
	h, w := 16, 16
	e := newTestEngine(t, h, w)
	entrance := gaussianWave(t, 3, h, w)

	pot := make([]float64, h*w)
	for i := range pot {
		pot[i] = float64(i % 5)
	}
	stack, _ := NewSliceStack(h, w, []Slice{{Potential: pot, Thickness: 2}})

	exit, err := e.Propagate(context.Background(), entrance, stack)
	if err != nil {
		t.Fatal(err)
	}
	for b := 1; b < exit.Batch(); b++ {
		for i := range exit.Data[0] {
			if exit.Data[b][i] != exit.Data[0][i] {
				t.Fatalf("identical batch elements diverged (batch %d index %d)", b, i)
			}
		}
	}
}

func TestPropagateGridMismatch(t *testing.T) {
	e := newTestEngine(t, 16, 16)
	entrance := gaussianWave(t, 1, 16, 16)
	stack, _ := NewSliceStack(8, 8, []Slice{{Thickness: 1}})
	if _, err := e.Propagate(context.Background(), entrance, stack); err == nil {
		t.Error("expected grid mismatch error")
	}
}

func TestPropagateCanceled(t *testing.T) {
	e := newTestEngine(t, 16, 16)
	entrance := gaussianWave(t, 1, 16, 16)
	stack, _ := NewSliceStack(16, 16, []Slice{{Thickness: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Propagate(ctx, entrance, stack); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAbsorptivePotentialDampens(t *testing.T) {
	h, w := 16, 16
	e := newTestEngine(t, h, w)
	entrance, _ := wave.New(1, h, w, 0.1, 0.1, 200e3)
	entrance.Plane()

	absorb := make([]float64, h*w)
	for i := range absorb {
		absorb[i] = 50
	}
	stack, _ := NewSliceStack(h, w, []Slice{{Absorption: absorb, Thickness: 1}})

	exit, err := e.Propagate(context.Background(), entrance, stack)
	if err != nil {
		t.Fatal(err)
	}
	var before, after float64
	for i := range entrance.Data[0] {
		before += 1
		after += cmplx.Abs(exit.Data[0][i]) * cmplx.Abs(exit.Data[0][i])
	}
	if after >= before {
		t.Errorf("absorptive slice must reduce intensity: %f >= %f", after, before)
	}
}
