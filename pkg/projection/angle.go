package projection

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"tomoprep/internal/models"
)

// ErrNoAngle is returned when a filename does not follow the angle naming convention
var ErrNoAngle = errors.New("filename carries no angle")

// ParseAngle extracts the rotation angle from a projection filename.
//
// The acquisition software names files prefix_<deg>_<frac>_<index>.ext, so
// "image_179_875_0412.tiff" was taken at 179.875 degrees. Only the two
// segments before the trailing file index are read.
func ParseAngle(name string) (float64, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("%w: %s", ErrNoAngle, base)
	}

	whole := parts[len(parts)-3]
	frac := parts[len(parts)-2]
	if whole == "" || frac == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoAngle, base)
	}

	angle, err := strconv.ParseFloat(whole+"."+frac, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoAngle, base)
	}
	return angle, nil
}

// ClosestTo returns the index of the file whose angle is nearest to target.
// Ties go to the first file. Files without an angle are skipped; ok is false
// when no file carries one.
func ClosestTo(files []string, target float64) (index int, ok bool) {
	best := math.Inf(1)
	for i, name := range files {
		angle, err := ParseAngle(name)
		if err != nil {
			continue
		}
		if diff := math.Abs(angle - target); diff < best {
			best = diff
			index = i
			ok = true
		}
	}
	return index, ok
}

// Describe lists the projection metadata for files
func Describe(files []string) []models.Projection {
	out := make([]models.Projection, len(files))
	for i, name := range files {
		p := models.Projection{Index: i, Filename: filepath.Base(name)}
		if angle, err := ParseAngle(name); err == nil {
			p.Angle = angle
			p.HasAngle = true
		}
		out[i] = p
	}
	return out
}
