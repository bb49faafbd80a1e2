package transform

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ojholm/temsim/internal/diag"
)

// Effort controls how much work the planner spends choosing a provider
// for a grid shape before the first transform runs.
type Effort int

const (
	// EffortEstimate picks the first available provider in preference
	// order without running anything.
	EffortEstimate Effort = iota

	// EffortMeasure times one transform per candidate on the target
	// shape and keeps the fastest.
	EffortMeasure

	// EffortPatient is EffortMeasure with repeated timings.
	EffortPatient
)

func (e Effort) String() string {
	switch e {
	case EffortMeasure:
		return "measure"
	case EffortPatient:
		return "patient"
	default:
		return "estimate"
	}
}

func ParseEffort(s string) (Effort, error) {
	switch s {
	case "", "estimate":
		return EffortEstimate, nil
	case "measure":
		return EffortMeasure, nil
	case "patient":
		return EffortPatient, nil
	}
	return EffortEstimate, fmt.Errorf("transform: unknown planning effort %q", s)
}

// Planning is the provider-selection policy, fixed at initialization.
type Planning struct {
	Effort        Effort
	TimeBudget    time.Duration
	AllowFallback bool
}

// Select chooses a provider for the given grid shape. If measurement
// exceeds the time budget, or the requested library is unavailable and
// fallback is allowed, selection degrades to the estimate path and the
// degradation is reported through the sink; it never aborts.
func Select(p Planning, library string, threads int, h, w int, sink diag.Sink) (Provider, error) {
	cands := Candidates(library, threads)

	available := cands[:0:0]
	for _, c := range cands {
		if c.Available() {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return nil, ErrLibraryUnavailable
	}
	if library != "" && library != "default" && available[0].Name() != library {
		if !p.AllowFallback {
			return nil, fmt.Errorf("%w: %s", ErrLibraryUnavailable, library)
		}
		diag.Warnf(sink, diag.PlanningDegraded,
			"library %s unavailable, using %s", library, available[0].Name())
	}

	if p.Effort == EffortEstimate || len(available) == 1 {
		return available[0], nil
	}

	reps := 1
	if p.Effort == EffortPatient {
		reps = 3
	}
	budget := p.TimeBudget
	if budget <= 0 {
		budget = time.Second
	}
	deadline := time.Now().Add(budget)

	probe := make([]complex128, h*w)
	rng := rand.New(rand.NewSource(1))
	for i := range probe {
		probe[i] = complex(rng.Float64(), rng.Float64())
	}

	best := -1
	var bestTime time.Duration
	work := make([]complex128, h*w)
	for i, c := range available {
		if time.Now().After(deadline) {
			break
		}
		plan, err := c.NewPlan(h, w)
		if err != nil {
			continue
		}
		var total time.Duration
		ok := true
		for r := 0; r < reps; r++ {
			copy(work, probe)
			start := time.Now()
			if err := plan.Forward(work); err != nil {
				ok = false
				break
			}
			total += time.Since(start)
			if time.Now().After(deadline) {
				break
			}
		}
		if !ok {
			continue
		}
		if best < 0 || total < bestTime {
			best, bestTime = i, total
		}
	}

	if best < 0 {
		// Budget exhausted before any measurement finished; correct but
		// possibly slower.
		diag.Warnf(sink, diag.PlanningDegraded,
			"planning budget %v exhausted for %dx%d, using %s unmeasured",
			budget, h, w, available[0].Name())
		return available[0], nil
	}
	return available[best], nil
}
