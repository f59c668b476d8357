package center

import (
	"fmt"
	"strings"

	"tomoprep/pkg/projection"
)

// SelectionPolicy picks the index of the 180 degree projection from the file list
type SelectionPolicy func(files []string) int

// SelectByAngle picks the file whose name encodes the angle closest to 180
// degrees. When no name carries an angle it falls back to index 0.
func SelectByAngle(files []string) int {
	index, ok := projection.ClosestTo(files, 180.0)
	if !ok {
		return 0
	}
	return index
}

// SelectFixed always picks index 0 and leaves the choice to the user
func SelectFixed(files []string) int {
	return 0
}

// ParseSelection maps a configuration value to a policy
func ParseSelection(name string) (SelectionPolicy, error) {
	switch strings.ToLower(name) {
	case "", "angle":
		return SelectByAngle, nil
	case "fixed":
		return SelectFixed, nil
	default:
		return nil, fmt.Errorf("unknown 180 degree selection %q (must be angle or fixed)", name)
	}
}
