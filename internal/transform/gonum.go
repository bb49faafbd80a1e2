package transform

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// gonumProvider executes 2D transforms as row passes followed by column
// passes with per-length fourier.CmplxFFT plans. Gonum's transforms are
// unnormalized; the inverse pass owns the 1/(H*W) scaling.
type gonumProvider struct{}

func newGonumProvider() *gonumProvider { return &gonumProvider{} }

func (p *gonumProvider) Name() string    { return LibGonum }
func (p *gonumProvider) Available() bool { return true }

func (p *gonumProvider) NewPlan(h, w int) (Plan, error) {
	if h < 1 || w < 1 {
		return nil, ErrInvalidShape
	}
	return &gonumPlan{
		h:      h,
		w:      w,
		rowFFT: fourier.NewCmplxFFT(w),
		colFFT: fourier.NewCmplxFFT(h),
		col:    make([]complex128, h),
	}, nil
}

type gonumPlan struct {
	h, w   int
	rowFFT *fourier.CmplxFFT
	colFFT *fourier.CmplxFFT
	col    []complex128
}

func (pl *gonumPlan) Forward(data []complex128) error {
	if len(data) != pl.h*pl.w {
		return ErrShapeMismatch
	}
	for y := 0; y < pl.h; y++ {
		row := data[y*pl.w : (y+1)*pl.w]
		pl.rowFFT.Coefficients(row, row)
	}
	for x := 0; x < pl.w; x++ {
		for y := 0; y < pl.h; y++ {
			pl.col[y] = data[y*pl.w+x]
		}
		pl.colFFT.Coefficients(pl.col, pl.col)
		for y := 0; y < pl.h; y++ {
			data[y*pl.w+x] = pl.col[y]
		}
	}
	return nil
}

func (pl *gonumPlan) Inverse(data []complex128) error {
	if len(data) != pl.h*pl.w {
		return ErrShapeMismatch
	}
	for y := 0; y < pl.h; y++ {
		row := data[y*pl.w : (y+1)*pl.w]
		pl.rowFFT.Sequence(row, row)
	}
	scale := complex(1/float64(pl.h*pl.w), 0)
	for x := 0; x < pl.w; x++ {
		for y := 0; y < pl.h; y++ {
			pl.col[y] = data[y*pl.w+x]
		}
		pl.colFFT.Sequence(pl.col, pl.col)
		for y := 0; y < pl.h; y++ {
			data[y*pl.w+x] = pl.col[y] * scale
		}
	}
	return nil
}
