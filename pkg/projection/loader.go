// Package projection loads the projection images of a tomography scan and
// exposes them as gonum matrices indexed by file position.
package projection

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"tomoprep/internal/models"
)

// DefaultExtensions lists the file extensions accepted by OpenDir when none are given
var DefaultExtensions = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}

// DirLoader serves the projections of one directory. Files are listed once at
// open time and decoded lazily on first Fetch.
type DirLoader struct {
	dir   string
	files []string

	mu    sync.Mutex
	cache map[int]*mat.Dense
}

// OpenDir lists the projection files in dir whose extension is in exts.
// Files are ordered by name so that the index of a file is stable between runs.
func OpenDir(dir string, exts []string) (*DirLoader, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	accepted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		accepted[strings.ToLower(ext)] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read projection directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if accepted[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", models.ErrNoProjections, dir)
	}
	sort.Strings(files)

	return &DirLoader{
		dir:   dir,
		files: files,
		cache: make(map[int]*mat.Dense),
	}, nil
}

// Dir returns the directory the loader was opened on
func (l *DirLoader) Dir() string {
	return l.dir
}

// Files returns the base names of the projection files in index order
func (l *DirLoader) Files() []string {
	out := make([]string, len(l.files))
	copy(out, l.files)
	return out
}

// Len returns the number of projections
func (l *DirLoader) Len() int {
	return len(l.files)
}

// Fetch returns the projection at index as a height x width matrix of
// intensities in [0, 1]. The returned matrix is a copy and may be modified.
func (l *DirLoader) Fetch(index int) (*mat.Dense, error) {
	if index < 0 || index >= len(l.files) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", models.ErrIndexOutOfRange, index, len(l.files))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.cache[index]; ok {
		return mat.DenseCopyOf(m), nil
	}

	path := filepath.Join(l.dir, l.files[index])
	img, err := loadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", l.files[index], err)
	}
	m := ImageToMatrix(img)
	if m.IsEmpty() {
		return nil, fmt.Errorf("image %s has no pixels", l.files[index])
	}
	l.cache[index] = m
	return mat.DenseCopyOf(m), nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ImageToMatrix converts an image to a matrix of 16-bit gray intensities
// scaled to [0, 1]. Row i of the matrix is image row i.
func ImageToMatrix(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return &mat.Dense{}
	}

	data := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			data[y*width+x] = float64(g.Y) / 65535.0
		}
	}
	return mat.NewDense(height, width, data)
}

// MemoryLoader serves projections that are already in memory
type MemoryLoader struct {
	names  []string
	images []*mat.Dense
}

// NewMemoryLoader pairs file names with their images. Both slices must have
// the same length.
func NewMemoryLoader(names []string, images []*mat.Dense) (*MemoryLoader, error) {
	if len(names) != len(images) {
		return nil, fmt.Errorf("got %d names for %d images", len(names), len(images))
	}
	return &MemoryLoader{names: names, images: images}, nil
}

// Files returns the projection names in index order
func (l *MemoryLoader) Files() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of projections
func (l *MemoryLoader) Len() int {
	return len(l.names)
}

// Fetch returns a copy of the projection at index
func (l *MemoryLoader) Fetch(index int) (*mat.Dense, error) {
	if index < 0 || index >= len(l.images) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", models.ErrIndexOutOfRange, index, len(l.images))
	}
	if l.images[index] == nil || l.images[index].IsEmpty() {
		return nil, fmt.Errorf("projection %s has no pixels", l.names[index])
	}
	return mat.DenseCopyOf(l.images[index]), nil
}
