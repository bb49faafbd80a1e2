// Package scheduler decomposes a simulation's index space (probe
// positions times frozen-phonon configurations) into independent
// chunks, runs them with bounded parallelism, and gathers exit waves
// into pre-assigned output slots. Chunks never read each other's
// output, so assembly is lock-free and the assembled result is
// identical for any chunk size or execution order.
package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ojholm/temsim/internal/compute"
	"github.com/ojholm/temsim/internal/multislice"
	"github.com/ojholm/temsim/internal/wave"
)

// Source supplies entrance waves and specimen potentials per chunk.
// Implementations must be deterministic: probe i under phonon p with a
// given seed yields the same data regardless of which chunk asks.
type Source interface {
	// Grid reports the simulation grid shape.
	Grid() (h, w int)

	// Entrance builds the batched entrance wave for probes [lo, hi)
	// under one frozen-phonon realization.
	Entrance(probeLo, probeHi, phonon int, seed int64) (*wave.Wave, error)

	// Potential builds the slice stack for one frozen-phonon
	// realization.
	Potential(phonon int, seed int64) (*multislice.SliceStack, error)
}

// Spec declares the simulation's independent index space and the
// chunking policy applied to it.
type Spec struct {
	Probes  int
	Phonons int

	// Seed is the base seed; phonon p draws its displacements from
	// Seed + p, so results are reproducible for a fixed spec.
	Seed int64

	// ChunkBytes is the target resident size of one chunk's wave batch.
	ChunkBytes int64

	// MemoryBudget bounds total resident chunk memory. Zero means the
	// backend's budget.
	MemoryBudget int64

	// Workers caps parallel chunk execution. Zero means NumCPU on the
	// CPU device; the GPU device always serializes onto its queue.
	Workers int

	// Lazy defers execution until Compute is called explicitly. When
	// false, Schedule triggers Compute before returning; decomposition
	// granularity is governed by ChunkBytes either way.
	Lazy bool
}

// Chunk is one unit of independent work and the output slot range it
// writes. Discarded after its result is merged.
type Chunk struct {
	ProbeLo, ProbeHi int
	Phonon           int

	// Slot is the first output slot; the chunk owns slots
	// [Slot, Slot+ProbeHi-ProbeLo).
	Slot int

	attempt int
}

// Result is the assembled output, slot = phonon*Probes + probe.
type Result struct {
	Probes, Phonons int
	H, W            int
	Exit            [][]complex128
}

func (r *Result) At(probe, phonon int) []complex128 {
	return r.Exit[phonon*r.Probes+probe]
}

func (r *Result) Intensity(probe, phonon int) []float64 {
	d := r.At(probe, phonon)
	out := make([]float64, len(d))
	for i, v := range d {
		re, im := real(v), imag(v)
		out[i] = re*re + im*im
	}
	return out
}

// Graph is the deferred execution plan: independent chunk nodes and a
// single Compute trigger. Compute is memoized.
type Graph struct {
	spec   Spec
	chunks []Chunk
	src    Source
	eng    *multislice.Engine

	mu       sync.Mutex
	computed bool
	result   *Result
	err      error
}

const maxSplitRetries = 3

// Schedule builds the chunk graph for the spec. With spec.Lazy unset
// the graph is computed eagerly before returning.
func Schedule(ctx context.Context, spec Spec, src Source, eng *multislice.Engine) (*Graph, error) {
	if spec.Probes < 1 || spec.Phonons < 1 {
		return nil, ErrBadSpec
	}
	h, w := src.Grid()
	if h < 1 || w < 1 {
		return nil, ErrBadSpec
	}

	per := probesPerChunk(spec, h, w, eng.Context().Precision())
	var chunks []Chunk
	for p := 0; p < spec.Phonons; p++ {
		for lo := 0; lo < spec.Probes; lo += per {
			hi := lo + per
			if hi > spec.Probes {
				hi = spec.Probes
			}
			chunks = append(chunks, Chunk{
				ProbeLo: lo,
				ProbeHi: hi,
				Phonon:  p,
				Slot:    p*spec.Probes + lo,
			})
		}
	}

	g := &Graph{spec: spec, chunks: chunks, src: src, eng: eng}
	if !spec.Lazy {
		if _, err := g.Compute(ctx); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func probesPerChunk(spec Spec, h, w int, prec compute.Precision) int {
	waveBytes := int64(h*w) * prec.ComplexBytes()
	if spec.ChunkBytes <= 0 || waveBytes == 0 {
		return spec.Probes
	}
	per := int(spec.ChunkBytes / waveBytes)
	if per < 1 {
		per = 1
	}
	if per > spec.Probes {
		per = spec.Probes
	}
	return per
}

// Chunks exposes the planned decomposition.
func (g *Graph) Chunks() []Chunk {
	out := make([]Chunk, len(g.chunks))
	copy(out, g.chunks)
	return out
}

// Computed reports whether the graph has already run.
func (g *Graph) Computed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.computed
}

// Compute executes all chunks with bounded parallelism and assembles
// the result. Repeated calls return the memoized outcome.
func (g *Graph) Compute(ctx context.Context) (*Result, error) {
	g.mu.Lock()
	if g.computed {
		defer g.mu.Unlock()
		return g.result, g.err
	}
	g.mu.Unlock()

	h, w := g.src.Grid()
	res := &Result{
		Probes:  g.spec.Probes,
		Phonons: g.spec.Phonons,
		H:       h,
		W:       w,
		Exit:    make([][]complex128, g.spec.Probes*g.spec.Phonons),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.admissionLimit())
	for _, c := range g.chunks {
		c := c
		eg.Go(func() error {
			return g.runChunk(ctx, c, res)
		})
	}
	err := eg.Wait()

	g.mu.Lock()
	g.computed = true
	if err != nil {
		g.result, g.err = nil, err
	} else {
		g.result, g.err = res, nil
	}
	g.mu.Unlock()
	return g.result, g.err
}

// admissionLimit bounds in-flight chunks so resident memory stays under
// the budget; the GPU serializes onto its device queue.
func (g *Graph) admissionLimit() int {
	if g.eng.Context().Device() == compute.GPU {
		return 1
	}
	limit := g.spec.Workers
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	if g.spec.ChunkBytes > 0 {
		budget := g.spec.MemoryBudget
		if budget <= 0 {
			budget = compute.ForDevice(g.eng.Context().Device()).MemoryBudget()
		}
		if byMem := int(budget / g.spec.ChunkBytes); byMem >= 1 && byMem < limit {
			limit = byMem
		}
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// runChunk executes one chunk, retrying on resource exhaustion with a
// halved probe span, bounded by maxSplitRetries.
func (g *Graph) runChunk(ctx context.Context, c Chunk, res *Result) error {
	seed := g.spec.Seed + int64(c.Phonon)

	entrance, err := g.src.Entrance(c.ProbeLo, c.ProbeHi, c.Phonon, seed)
	if err == nil {
		var stack *multislice.SliceStack
		stack, err = g.src.Potential(c.Phonon, seed)
		if err == nil {
			var exit *wave.Wave
			exit, err = g.eng.Propagate(ctx, entrance, stack)
			if err == nil {
				for j, d := range exit.Data {
					res.Exit[c.Slot+j] = d
				}
				return nil
			}
		}
	}

	if errors.Is(err, ErrResourceExhausted) && c.ProbeHi-c.ProbeLo > 1 && c.attempt < maxSplitRetries {
		mid := (c.ProbeLo + c.ProbeHi) / 2
		left := Chunk{ProbeLo: c.ProbeLo, ProbeHi: mid, Phonon: c.Phonon, Slot: c.Slot, attempt: c.attempt + 1}
		right := Chunk{ProbeLo: mid, ProbeHi: c.ProbeHi, Phonon: c.Phonon, Slot: c.Slot + (mid - c.ProbeLo), attempt: c.attempt + 1}
		if err := g.runChunk(ctx, left, res); err != nil {
			return err
		}
		return g.runChunk(ctx, right, res)
	}
	return &ChunkError{Chunk: c, Wrapped: err}
}
