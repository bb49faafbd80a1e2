// Package compute resolves numeric precision and compute device for the
// whole engine. Every array-creating operation queries a Context instead
// of hard-coding float width or device.
package compute

import "fmt"

type Precision int

const (
	Single Precision = iota // float32 components
	Double                  // float64 components
)

func (p Precision) String() string {
	if p == Single {
		return "float32"
	}
	return "float64"
}

func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "float32", "single":
		return Single, nil
	case "float64", "double", "":
		return Double, nil
	}
	return Double, fmt.Errorf("compute: unknown precision %q", s)
}

// ComplexBytes returns the storage footprint of one complex element.
func (p Precision) ComplexBytes() int64 {
	if p == Single {
		return 8
	}
	return 16
}

// Tolerance is the relative round-trip tolerance guaranteed by the
// transform provider at this precision.
func (p Precision) Tolerance() float64 {
	if p == Single {
		return 1e-5
	}
	return 1e-12
}

// Quantize demotes every element to the precision's mantissa width.
// At Double it is the identity. Working buffers are always complex128;
// Single results are rounded through float32 after each inverse
// transform so downstream values carry single-precision information only.
func (p Precision) Quantize(data []complex128) {
	if p == Double {
		return
	}
	for i, v := range data {
		data[i] = complex(float64(float32(real(v))), float64(float32(imag(v))))
	}
}

type Device int

const (
	CPU Device = iota
	GPU
)

func (d Device) String() string {
	if d == GPU {
		return "gpu"
	}
	return "cpu"
}

func ParseDevice(s string) (Device, error) {
	switch s {
	case "cpu", "":
		return CPU, nil
	case "gpu", "cuda":
		return GPU, nil
	}
	return CPU, fmt.Errorf("compute: unknown device %q", s)
}
