package rotation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// createOpposingPair builds a 0 degree projection and the 180 degree
// projection an object rotating about a fixed axis would produce, such that
// the mirrored 180 degree image is the 0 degree image shifted by shift columns.
func createOpposingPair(rows, cols, shift int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(7))
	img0 := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			img0.Set(i, j, rng.Float64())
		}
	}

	img180 := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for x := 0; x < cols; x++ {
			src := ((x+shift)%cols + cols) % cols
			img180.Set(i, cols-1-x, img0.At(i, src))
		}
	}
	return img0, img180
}

func TestFindCenter(t *testing.T) {
	tests := []struct {
		shift int
		want  float64
	}{
		{shift: 5, want: 18},
		{shift: 0, want: 15.5},
		{shift: -3, want: 14},
		{shift: 10, want: 20.5},
	}

	pc := NewPhaseCorrelation(DefaultTolerance)
	for _, tt := range tests {
		img0, img180 := createOpposingPair(8, 32, tt.shift)
		got, err := pc.FindCenter(img0, img180)
		if err != nil {
			t.Fatalf("shift %d: unexpected error %v", tt.shift, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("shift %d: expected center %f, got %f", tt.shift, tt.want, got)
		}
	}
}

func TestFindCenterDeterministic(t *testing.T) {
	img0, img180 := createOpposingPair(6, 20, 2)
	pc := &PhaseCorrelation{}

	first, err := pc.FindCenter(img0, img180)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := pc.FindCenter(img0, img180)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Errorf("Expected %f on every call, got %f", first, again)
		}
	}
}

func TestFindCenterErrors(t *testing.T) {
	pc := NewPhaseCorrelation(0)

	if _, err := pc.FindCenter(&mat.Dense{}, &mat.Dense{}); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}

	a := mat.NewDense(2, 3, nil)
	b := mat.NewDense(3, 2, nil)
	if _, err := pc.FindCenter(a, b); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func TestParabolicOffset(t *testing.T) {
	// y = -(x - 0.25)^2 sampled at -1, 0, 1
	f := func(x float64) float64 { return -(x - 0.25) * (x - 0.25) }
	got := parabolicOffset(f(-1), f(0), f(1))
	if math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Expected vertex at 0.25, got %f", got)
	}

	if got := parabolicOffset(1, 1, 1); got != 0 {
		t.Errorf("Expected 0 for a flat neighborhood, got %f", got)
	}
}

func TestQuantize(t *testing.T) {
	pc := &PhaseCorrelation{Tolerance: 0.5}
	if got := pc.quantize(0.3); got != 0.5 {
		t.Errorf("Expected 0.5, got %f", got)
	}
	if got := pc.quantize(0.2); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}

	fine := &PhaseCorrelation{Tolerance: 0.1}
	if got := fine.quantize(0.26); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("Expected 0.3, got %f", got)
	}
}

func TestFlipLR(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	want := mat.NewDense(2, 3, []float64{3, 2, 1, 6, 5, 4})
	if got := flipLR(m); !mat.Equal(got, want) {
		t.Errorf("Expected %v, got %v", mat.Formatted(want), mat.Formatted(got))
	}
}
