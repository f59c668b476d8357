// Package rotation estimates the rotation axis of a tomography scan from a
// pair of opposing projections.
package rotation

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is the sub-pixel resolution of the registered shift
const DefaultTolerance = 0.5

var (
	// ErrEmptyImage is returned for a projection without pixels
	ErrEmptyImage = errors.New("empty projection")

	// ErrShapeMismatch is returned when the two projections differ in size
	ErrShapeMismatch = errors.New("projection shapes differ")
)

// PhaseCorrelation finds the center of rotation by registering the 0 degree
// projection against the mirrored 180 degree projection.
type PhaseCorrelation struct {
	// Tolerance is the step, in pixels, the registered shift is quantized to.
	// Zero or negative means DefaultTolerance.
	Tolerance float64
}

// NewPhaseCorrelation returns an estimator with the given tolerance
func NewPhaseCorrelation(tolerance float64) *PhaseCorrelation {
	return &PhaseCorrelation{Tolerance: tolerance}
}

// FindCenter returns the column of the rotation axis in image coordinates.
//
// A projection at 180 degrees is the 0 degree projection mirrored about the
// axis. Flipping it left-right leaves a pure horizontal translation s with
// respect to the 0 degree projection, and the axis sits at (width + s - 1) / 2.
func (pc *PhaseCorrelation) FindCenter(image0, image180 mat.Matrix) (float64, error) {
	rows, cols := image0.Dims()
	if rows == 0 || cols == 0 {
		return 0, ErrEmptyImage
	}
	r180, c180 := image180.Dims()
	if r180 != rows || c180 != cols {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, rows, cols, r180, c180)
	}

	shift := pc.columnShift(image0, flipLR(image180))
	return (float64(cols) + shift - 1.0) / 2.0, nil
}

// columnShift returns the horizontal shift s such that ref(x) ~ mov(x - s)
func (pc *PhaseCorrelation) columnShift(ref, mov mat.Matrix) float64 {
	rows, cols := ref.Dims()

	product := fft2D(ref)
	movFreq := fft2D(mov)
	for i := range product {
		p := product[i] * cmplx.Conj(movFreq[i])
		if mag := cmplx.Abs(p); mag > 1e-12 {
			product[i] = p / complex(mag, 0)
		} else {
			product[i] = 0
		}
	}
	ifft2D(product, rows, cols)

	peakRow, peakCol := 0, 0
	peak := math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := real(product[i*cols+j]); v > peak {
				peak = v
				peakRow, peakCol = i, j
			}
		}
	}

	shift := float64(peakCol)
	if peakCol > cols/2 {
		shift -= float64(cols)
	}

	if cols >= 3 {
		left := real(product[peakRow*cols+(peakCol-1+cols)%cols])
		right := real(product[peakRow*cols+(peakCol+1)%cols])
		shift += pc.quantize(parabolicOffset(left, peak, right))
	}
	return shift
}

func (pc *PhaseCorrelation) quantize(offset float64) float64 {
	tol := pc.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return math.Round(offset/tol) * tol
}

// parabolicOffset returns the vertex of the parabola through three samples,
// relative to the middle one, clamped to half a pixel
func parabolicOffset(left, mid, right float64) float64 {
	denom := left - 2*mid + right
	if denom == 0 {
		return 0
	}
	offset := 0.5 * (left - right) / denom
	return math.Max(-0.5, math.Min(0.5, offset))
}

func flipLR(m mat.Matrix) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, cols-1-j, m.At(i, j))
		}
	}
	return out
}
