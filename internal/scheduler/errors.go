package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrBadSpec indicates an invalid simulation spec (non-positive
	// index space or chunk target).
	ErrBadSpec = errors.New("scheduler: invalid simulation spec")

	// ErrResourceExhausted indicates a chunk could not be admitted or
	// allocated within the device memory budget. Retried with a
	// reduced chunk size a bounded number of times, then surfaced.
	ErrResourceExhausted = errors.New("scheduler: device memory budget exhausted")
)

// ChunkError attaches the failing chunk descriptor to an execution
// error so the caller can diagnose which unit of work failed.
type ChunkError struct {
	Chunk   Chunk
	Wrapped error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("scheduler: chunk probes[%d:%d) phonon %d: %v",
		e.Chunk.ProbeLo, e.Chunk.ProbeHi, e.Chunk.Phonon, e.Wrapped)
}

func (e *ChunkError) Unwrap() error { return e.Wrapped }
