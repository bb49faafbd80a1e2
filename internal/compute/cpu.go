package compute

import "runtime"

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{workers: runtime.NumCPU()}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Device() Device  { return CPU }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) Workers() int { return c.workers }

// MemoryBudget for the CPU is a soft limit; host memory is not probed,
// chunk admission is driven by worker count instead.
func (c *CPUBackend) MemoryBudget() int64 {
	return int64(c.workers) * 512 * 1024 * 1024
}
