//go:build !cuda

package compute

type GPUBackend struct{}

func NewGPUBackend() *GPUBackend {
	return &GPUBackend{}
}

func (g *GPUBackend) Name() string        { return "gpu (not available)" }
func (g *GPUBackend) Device() Device      { return GPU }
func (g *GPUBackend) Available() bool     { return false }
func (g *GPUBackend) MemoryBudget() int64 { return 0 }
func (g *GPUBackend) Cleanup()            {}
