package models

import "fmt"

// Projection describes a single projection image of a tomography scan
type Projection struct {
	// Index is the position of this projection in the loaded set
	Index int

	// Filename is the base name of the file the projection was read from
	Filename string

	// Angle is the rotation angle in degrees parsed from the filename.
	// Only meaningful when HasAngle is true.
	Angle float64

	// HasAngle reports whether the filename followed the angle convention
	HasAngle bool
}

func (p Projection) String() string {
	if !p.HasAngle {
		return fmt.Sprintf("#%d %s", p.Index, p.Filename)
	}
	return fmt.Sprintf("#%d %s (%.3f deg)", p.Index, p.Filename, p.Angle)
}

// Dimensions is the size of a projection image in pixels
type Dimensions struct {
	Width  int
	Height int
}
