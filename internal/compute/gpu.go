//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -lcudart

#include <cuda_runtime.h>

static int temsim_device_count() {
	int n = 0;
	if (cudaGetDeviceCount(&n) != cudaSuccess) return 0;
	return n;
}

static long long temsim_free_mem() {
	size_t free_b = 0, total_b = 0;
	if (cudaMemGetInfo(&free_b, &total_b) != cudaSuccess) return 0;
	return (long long)free_b;
}

static const char* temsim_device_name() {
	static struct cudaDeviceProp prop;
	if (cudaGetDeviceProperties(&prop, 0) != cudaSuccess) return "";
	return prop.name;
}
*/
import "C"

type GPUBackend struct {
	available  bool
	deviceName string
	freeBytes  int64
}

func NewGPUBackend() *GPUBackend {
	count := int(C.temsim_device_count())
	g := &GPUBackend{available: count > 0}
	if g.available {
		g.deviceName = C.GoString(C.temsim_device_name())
		g.freeBytes = int64(C.temsim_free_mem())
	}
	return g
}

func (g *GPUBackend) Name() string {
	if g.available {
		return "gpu (" + g.deviceName + ")"
	}
	return "gpu (not available)"
}

func (g *GPUBackend) Device() Device      { return GPU }
func (g *GPUBackend) Available() bool     { return g.available }
func (g *GPUBackend) MemoryBudget() int64 { return g.freeBytes }
func (g *GPUBackend) Cleanup()            {}
