package compute

import "testing"

func TestParsePrecision(t *testing.T) {
	p, err := ParsePrecision("float32")
	if err != nil || p != Single {
		t.Errorf("expected Single, got %v (err %v)", p, err)
	}
	p, err = ParsePrecision("")
	if err != nil || p != Double {
		t.Errorf("empty string should default to Double, got %v", p)
	}
	if _, err := ParsePrecision("float16"); err == nil {
		t.Error("expected error for unknown precision")
	}
}

func TestQuantizeSingle(t *testing.T) {
	data := []complex128{complex(1.0/3.0, 2.0/3.0)}
	Single.Quantize(data)
	want := complex(float64(float32(1.0/3.0)), float64(float32(2.0/3.0)))
	if data[0] != want {
		t.Errorf("expected %v, got %v", want, data[0])
	}
}

func TestQuantizeDoubleIdentity(t *testing.T) {
	v := complex(1.0/3.0, 2.0/3.0)
	data := []complex128{v}
	Double.Quantize(data)
	if data[0] != v {
		t.Errorf("Double quantize must be identity, got %v", data[0])
	}
}

func TestContextWith(t *testing.T) {
	base := NewContext(Double, CPU, "gonum", 4)
	derived := base.With(WithPrecision(Single), WithDevice(GPU))

	if derived.Precision() != Single || derived.Device() != GPU {
		t.Errorf("override not applied: %v %v", derived.Precision(), derived.Device())
	}
	if base.Precision() != Double || base.Device() != CPU {
		t.Error("base context mutated by With")
	}
	if derived.Library() != "gonum" || derived.Threads() != 4 {
		t.Error("untouched fields must carry over")
	}
}

func TestStackNesting(t *testing.T) {
	s := NewStack(NewContext(Double, CPU, "gonum", 1))

	restoreOuter := s.Push(WithPrecision(Single))
	if s.Current().Precision() != Single {
		t.Fatal("outer override not visible")
	}

	restoreInner := s.Push(WithDevice(GPU))
	cur := s.Current()
	if cur.Precision() != Single || cur.Device() != GPU {
		t.Fatal("innermost override must win and inherit outer")
	}

	restoreInner()
	if s.Current().Device() != CPU || s.Current().Precision() != Single {
		t.Error("inner restore should leave outer override active")
	}

	restoreOuter()
	if s.Current().Precision() != Double {
		t.Error("outer restore should recover base context")
	}

	// Calling restore twice must be harmless.
	restoreOuter()
	if s.Current().Precision() != Double {
		t.Error("double restore corrupted the stack")
	}
}

func TestForDeviceFallsBackToCPU(t *testing.T) {
	b := ForDevice(GPU)
	if !b.Available() {
		t.Error("ForDevice must return a usable backend")
	}
}
