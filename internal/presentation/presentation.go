// Package presentation derives display attributes for catalog bodies. Nothing
// here feeds back into propagation or planning.
package presentation

import (
	"strconv"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// Size is a coarse radius bucket used by clients for marker scaling.
type Size string

const (
	SizeSmall  Size = "Small"
	SizeMedium Size = "Medium"
	SizeLarge  Size = "Large"
	SizeHuge   Size = "Huge"
)

// Radius bucket upper bounds in metres.
const (
	smallRadius  = 5_000
	mediumRadius = 20_000
	largeRadius  = 50_000
)

// SizeOf buckets a radius in metres.
func SizeOf(radius float64) Size {
	switch {
	case radius < smallRadius:
		return SizeSmall
	case radius < mediumRadius:
		return SizeMedium
	case radius < largeRadius:
		return SizeLarge
	default:
		return SizeHuge
	}
}

// Name returns the body's given name, or "Asteroid #<id>" when unnamed.
func Name(b model.Body) string {
	if b.Name != "" {
		return b.Name
	}
	return "Asteroid #" + strconv.Itoa(b.ID)
}

// Decorated is a body with its display attributes resolved.
type Decorated struct {
	model.Body
	DisplayName string
	Size        Size
}

// Decorate resolves display attributes for b.
func Decorate(b model.Body) Decorated {
	return Decorated{Body: b, DisplayName: Name(b), Size: SizeOf(b.Radius)}
}
