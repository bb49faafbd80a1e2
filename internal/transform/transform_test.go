package transform

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"
	"time"

	"github.com/ojholm/temsim/internal/compute"
	"github.com/ojholm/temsim/internal/diag"
	"github.com/ojholm/temsim/internal/wave"
)

func randomWave(t *testing.T, batch, h, w int, seed int64) *wave.Wave {
	t.Helper()
	wv, err := wave.New(batch, h, w, 0.1, 0.1, 200e3)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(seed))
	for _, d := range wv.Data {
		for i := range d {
			d[i] = complex(rng.Float64()-0.5, rng.Float64()-0.5)
		}
	}
	return wv
}

func maxRelErr(a, b []complex128) float64 {
	var maxErr, norm float64
	for i := range a {
		maxErr = math.Max(maxErr, cmplx.Abs(a[i]-b[i]))
		norm = math.Max(norm, cmplx.Abs(a[i]))
	}
	if norm == 0 {
		return maxErr
	}
	return maxErr / norm
}

func TestRoundTripDouble(t *testing.T) {
	ctx := compute.NewContext(compute.Double, compute.CPU, LibGonum, 1)
	tr, err := New(ctx, Planning{}, 16, 32, diag.Discard)
	if err != nil {
		t.Fatal(err)
	}

	wv := randomWave(t, 2, 16, 32, 1)
	orig := wv.Clone()

	if err := tr.Forward(wv); err != nil {
		t.Fatal(err)
	}
	if err := tr.Inverse(wv); err != nil {
		t.Fatal(err)
	}

	for b := range wv.Data {
		if rel := maxRelErr(orig.Data[b], wv.Data[b]); rel > 1e-12 {
			t.Errorf("batch %d round-trip error %g exceeds 1e-12", b, rel)
		}
	}
}

func TestRoundTripSingle(t *testing.T) {
	ctx := compute.NewContext(compute.Single, compute.CPU, LibGonum, 1)
	tr, err := New(ctx, Planning{}, 16, 16, diag.Discard)
	if err != nil {
		t.Fatal(err)
	}

	wv := randomWave(t, 1, 16, 16, 2)
	orig := wv.Clone()

	if err := tr.Forward(wv); err != nil {
		t.Fatal(err)
	}
	if err := tr.Inverse(wv); err != nil {
		t.Fatal(err)
	}

	if rel := maxRelErr(orig.Data[0], wv.Data[0]); rel > 1e-5 {
		t.Errorf("single-precision round-trip error %g exceeds 1e-5", rel)
	}
}

func TestProvidersAgree(t *testing.T) {
	h, w := 8, 12
	src := randomWave(t, 1, h, w, 3)

	results := map[string][]complex128{}
	for _, lib := range []string{LibGonum, LibGoDSP} {
		ctx := compute.NewContext(compute.Double, compute.CPU, lib, 1)
		tr, err := New(ctx, Planning{}, h, w, diag.Discard)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Provider() != lib {
			t.Fatalf("expected provider %s, got %s", lib, tr.Provider())
		}
		wv := src.Clone()
		if err := tr.Forward(wv); err != nil {
			t.Fatal(err)
		}
		results[lib] = wv.Data[0]
	}

	if rel := maxRelErr(results[LibGonum], results[LibGoDSP]); rel > 1e-10 {
		t.Errorf("providers disagree on forward spectrum: rel err %g", rel)
	}
}

func TestForwardDC(t *testing.T) {
	// The DC coefficient of the unnormalized forward transform is the
	// plain sum over the field.
	ctx := compute.NewContext(compute.Double, compute.CPU, LibGonum, 1)
	tr, err := New(ctx, Planning{}, 4, 4, diag.Discard)
	if err != nil {
		t.Fatal(err)
	}
	wv, _ := wave.New(1, 4, 4, 0.1, 0.1, 100e3)
	wv.Plane()
	if err := tr.Forward(wv); err != nil {
		t.Fatal(err)
	}
	if cmplx.Abs(wv.Data[0][0]-16) > 1e-12 {
		t.Errorf("DC coefficient = %v, want 16", wv.Data[0][0])
	}
}

func TestPlanCacheReuseAndBound(t *testing.T) {
	p := newGonumProvider()
	c := NewPlanCache(1)

	k1 := PlanKey{H: 4, W: 4, Library: LibGonum}
	plan1, put1, err := c.Get(k1, p)
	if err != nil {
		t.Fatal(err)
	}
	put1()
	plan2, put2, err := c.Get(k1, p)
	if err != nil {
		t.Fatal(err)
	}
	if plan1 != plan2 {
		t.Error("expected pooled plan to be reused for identical key")
	}
	put2()

	// Beyond the entry bound plans still work, just uncached.
	k2 := PlanKey{H: 8, W: 8, Library: LibGonum}
	plan3, put3, err := c.Get(k2, p)
	if err != nil {
		t.Fatal(err)
	}
	put3()
	if plan3 == nil || c.Len() != 1 {
		t.Errorf("bounded cache grew beyond limit: len=%d", c.Len())
	}
}

func TestPlanCacheConcurrentSingleEntry(t *testing.T) {
	p := newGonumProvider()
	c := NewPlanCache(0)
	key := PlanKey{H: 16, W: 16, Library: LibGonum}

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			plan, put, err := c.Get(key, p)
			if err == nil {
				err = plan.Forward(make([]complex128, 16*16))
				put()
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 1 {
		t.Errorf("expected exactly one cache entry, got %d", c.Len())
	}
}

func TestSelectFallbackWarns(t *testing.T) {
	rec := &diag.Recorder{}
	// Zero budget forces the measured path to give up and degrade.
	p := Planning{Effort: EffortMeasure, TimeBudget: time.Nanosecond, AllowFallback: true}
	prov, err := Select(p, "default", 1, 32, 32, rec)
	if err != nil {
		t.Fatal(err)
	}
	if prov == nil {
		t.Fatal("expected a provider despite degraded planning")
	}
	if !rec.Has(diag.PlanningDegraded) {
		t.Error("expected planning-degraded warning to be observable")
	}
}

func TestParseEffort(t *testing.T) {
	if e, err := ParseEffort("patient"); err != nil || e != EffortPatient {
		t.Errorf("patient parse failed: %v %v", e, err)
	}
	if _, err := ParseEffort("heroic"); err == nil {
		t.Error("expected error for unknown effort")
	}
}

func TestShapeMismatch(t *testing.T) {
	p := newGonumProvider()
	plan, err := p.NewPlan(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := plan.Forward(make([]complex128, 7)); err != ErrShapeMismatch {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}
