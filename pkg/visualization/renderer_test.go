package visualization

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"tomoprep/pkg/center"
)

// TestRenderGray verifies the stretch to the full gray range and the axis convention
func TestRenderGray(t *testing.T) {
	r := NewRenderer()
	// 3 columns wide, 2 rows high
	r.ShowPreview(mat.NewDense(3, 2, []float64{
		0, 1,
		2, 3,
		4, 8,
	}))

	img, err := r.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 3 || bounds.Dy() != 2 {
		t.Fatalf("Expected 3x2 picture, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	black := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	if black.R != 0 || black.G != 0 || black.B != 0 {
		t.Errorf("Expected black at minimum, got %v", black)
	}
	white := color.RGBAModel.Convert(img.At(2, 1)).(color.RGBA)
	if white.R != 255 || white.G != 255 || white.B != 255 {
		t.Errorf("Expected white at maximum, got %v", white)
	}
}

func TestRenderConstant(t *testing.T) {
	r := NewRenderer()
	r.ShowImage(mat.NewDense(2, 2, []float64{5, 5, 5, 5}))
	img, err := r.Render()
	if err != nil {
		t.Fatal(err)
	}
	if c := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA); c.R != 0 {
		t.Errorf("Expected constant image to render black, got %v", c)
	}
}

func TestRenderMarker(t *testing.T) {
	r := NewRenderer()
	r.ShowPreview(mat.NewDense(20, 4, nil))
	red := color.RGBA{R: 255, A: 255}
	r.ShowMarker(center.Marker{Column: 10, Color: red, Width: 4})

	img, err := r.Render()
	if err != nil {
		t.Fatal(err)
	}

	for x := 0; x < 20; x++ {
		c := color.RGBAModel.Convert(img.At(x, 3)).(color.RGBA)
		inBand := x >= 8 && x < 12
		if inBand && c != red {
			t.Errorf("Expected marker color at x=%d, got %v", x, c)
		}
		if !inBand && c == red {
			t.Errorf("Expected no marker at x=%d", x)
		}
	}

	r.ClearMarker()
	img, err = r.Render()
	if err != nil {
		t.Fatal(err)
	}
	if c := color.RGBAModel.Convert(img.At(10, 0)).(color.RGBA); c == red {
		t.Error("Expected marker gone after ClearMarker")
	}
}

func TestRenderMarkerClipped(t *testing.T) {
	r := NewRenderer()
	r.ShowPreview(mat.NewDense(5, 1, nil))
	r.ShowMarker(center.Marker{Column: 0, Color: color.RGBA{G: 255, A: 255}, Width: 10})
	img, err := r.Render()
	if err != nil {
		t.Fatal(err)
	}
	if c := color.RGBAModel.Convert(img.At(4, 0)).(color.RGBA); c.G != 255 {
		t.Errorf("Expected clipped band to cover x=4, got %v", c)
	}

	r.ShowMarker(center.Marker{Column: 100, Width: 2})
	if _, err := r.Render(); err != nil {
		t.Errorf("Expected marker outside the image to be ignored, got %v", err)
	}
}

func TestRenderNothing(t *testing.T) {
	if _, err := NewRenderer().Render(); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("Expected ErrNothingToRender, got %v", err)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer()
	r.ShowPreview(mat.NewDense(6, 4, nil))

	for _, name := range []string{"preview.png", "nested/preview.jpg"} {
		path := filepath.Join(dir, name)
		if err := r.Save(path); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		cfg, format, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", name, err)
		}
		if cfg.Width != 6 || cfg.Height != 4 {
			t.Errorf("%s: expected 6x4, got %dx%d", name, cfg.Width, cfg.Height)
		}
		if want := map[string]string{"preview.png": "png", "nested/preview.jpg": "jpeg"}[name]; format != want {
			t.Errorf("%s: expected format %s, got %s", name, want, format)
		}
	}
}
