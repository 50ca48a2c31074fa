package model

import "math"

// Position is a Cartesian point in the belt reference frame, in AU.
type Position struct {
	X float64
	Y float64
	Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the distance from the focus.
func (p Position) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Slice returns the position as an [x, y, z] triple.
func (p Position) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// OrbitPath is a closed sequence of positions sampled over one period.
// The last point duplicates the first.
type OrbitPath []Position
