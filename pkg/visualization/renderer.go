// Package visualization renders previews and overlay markers to image files.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"tomoprep/pkg/center"
)

// ErrNothingToRender is returned by Render before any image was shown
var ErrNothingToRender = errors.New("no image to render")

// Renderer keeps the last image and marker it was given and turns them into
// a picture. Matrices use the display convention of the panels: the first
// index is the horizontal axis, so a transposed projection renders upright.
//
// Renderer implements center.Presenter and tilt.Presenter.
type Renderer struct {
	img      mat.Matrix
	marker   *center.Marker
	strategy center.Strategy
}

// NewRenderer creates an empty renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// ShowPreview replaces the displayed image
func (r *Renderer) ShowPreview(img mat.Matrix) {
	r.img = img
}

// ShowImage replaces the displayed image
func (r *Renderer) ShowImage(img mat.Matrix) {
	r.img = img
}

// ShowStrategy records which value the panel displays
func (r *Renderer) ShowStrategy(s center.Strategy) {
	r.strategy = s
}

// ShowMarker replaces the overlay marker
func (r *Renderer) ShowMarker(m center.Marker) {
	r.marker = &m
}

// ClearMarker removes the overlay marker
func (r *Renderer) ClearMarker() {
	r.marker = nil
}

// Strategy returns the strategy last shown
func (r *Renderer) Strategy() center.Strategy {
	return r.strategy
}

// Render draws the current image stretched to the full gray range, with the
// marker as a vertical band on top
func (r *Renderer) Render() (image.Image, error) {
	if r.img == nil {
		return nil, ErrNothingToRender
	}

	gray := toGray16(r.img)
	out := image.NewRGBA(gray.Bounds())
	draw.Draw(out, out.Bounds(), gray, image.Point{}, draw.Src)

	if r.marker != nil {
		drawMarker(out, *r.marker)
	}
	return out, nil
}

// Save renders and writes the picture. The format follows the extension:
// .jpg and .jpeg give JPEG, anything else PNG.
func (r *Renderer) Save(filename string) error {
	img, err := r.Render()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// toGray16 maps m to 16-bit gray with the smallest value black and the
// largest white. A constant matrix renders black.
func toGray16(m mat.Matrix) *image.Gray16 {
	width, height := m.Dims()
	img := image.NewGray16(image.Rect(0, 0, width, height))

	lo, hi := math.Inf(1), math.Inf(-1)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			v := m.At(x, y)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			var value uint16
			if span > 0 {
				value = uint16(math.Round((m.At(x, y) - lo) / span * 65535))
			}
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// drawMarker paints a vertical band of m.Width columns centered on m.Column
func drawMarker(img *image.RGBA, m center.Marker) {
	width := m.Width
	if width < 1 {
		width = 1
	}
	start := m.Column - width/2
	band := image.Rect(start, img.Bounds().Min.Y, start+width, img.Bounds().Max.Y).Intersect(img.Bounds())
	if band.Empty() {
		return
	}
	draw.Draw(img, band, &image.Uniform{C: m.Color}, image.Point{}, draw.Src)
}
