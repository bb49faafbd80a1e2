package transform

import (
	"github.com/ojholm/temsim/internal/compute"
	"github.com/ojholm/temsim/internal/diag"
	"github.com/ojholm/temsim/internal/wave"
)

// Transformer is the shared FFT front end: one provider chosen at
// construction plus a plan cache. Transforms run in place on each batch
// element along the last two axes; leading batch elements are
// independent. Safe for concurrent use across chunks.
type Transformer struct {
	ctx      *compute.Context
	provider Provider
	cache    *PlanCache
	sink     diag.Sink
}

// New selects a provider under the planning policy for the expected
// grid shape and wires it to a fresh plan cache.
func New(ctx *compute.Context, planning Planning, h, w int, sink diag.Sink) (*Transformer, error) {
	if sink == nil {
		sink = diag.Discard
	}
	prov, err := Select(planning, ctx.Library(), ctx.Threads(), h, w, sink)
	if err != nil {
		return nil, err
	}
	return &Transformer{
		ctx:      ctx,
		provider: prov,
		cache:    NewPlanCache(0),
		sink:     sink,
	}, nil
}

func (t *Transformer) Provider() string          { return t.provider.Name() }
func (t *Transformer) Context() *compute.Context { return t.ctx }

func (t *Transformer) key(h, w int) PlanKey {
	return PlanKey{
		H:         h,
		W:         w,
		Precision: t.ctx.Precision(),
		Device:    t.ctx.Device(),
		Library:   t.provider.Name(),
	}
}

// Forward replaces each batch element with its unnormalized spectrum.
func (t *Transformer) Forward(wv *wave.Wave) error {
	return t.run(wv, true)
}

// Inverse replaces each batch element's spectrum with the real-space
// field, applying the 1/(H*W) scaling and demoting to the context
// precision.
func (t *Transformer) Inverse(wv *wave.Wave) error {
	return t.run(wv, false)
}

func (t *Transformer) run(wv *wave.Wave, forward bool) error {
	key := t.key(wv.H, wv.W)
	plan, put, err := t.cache.Get(key, t.provider)
	if err != nil {
		return err
	}
	defer put()

	for _, d := range wv.Data {
		if forward {
			err = plan.Forward(d)
		} else {
			err = plan.Inverse(d)
		}
		if err != nil {
			return &TransformError{Key: key, Wrapped: err}
		}
		if !forward {
			t.ctx.Precision().Quantize(d)
		}
	}
	return nil
}
