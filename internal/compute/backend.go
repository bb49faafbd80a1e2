package compute

import "sync"

// Backend abstracts the device executing array kernels. Initialization
// side effects (device probing, memory pool setup) happen in the
// constructor and are idempotent at the package level via AutoSelect.
type Backend interface {
	Name() string
	Device() Device
	Available() bool
	// MemoryBudget reports the bytes available for resident chunk
	// data, used by the scheduler's admission policy.
	MemoryBudget() int64
	Cleanup()
}

var (
	selectOnce sync.Once
	selected   Backend
)

// AutoSelect returns the GPU backend when one is usable, else the CPU
// backend. The probe runs once per process.
func AutoSelect() Backend {
	selectOnce.Do(func() {
		gpu := NewGPUBackend()
		if gpu.Available() {
			selected = gpu
			return
		}
		selected = NewCPUBackend()
	})
	return selected
}

// ForDevice returns the backend for an explicit device choice,
// falling back to CPU when the GPU is not usable.
func ForDevice(d Device) Backend {
	if d == GPU {
		gpu := NewGPUBackend()
		if gpu.Available() {
			return gpu
		}
	}
	return NewCPUBackend()
}
