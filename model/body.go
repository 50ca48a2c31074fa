package model

// Body is one catalog record. Only Elements feeds the numeric core; the
// remaining fields exist for presentation.
type Body struct {
	ID           int
	Name         string  // may be empty; see presentation.Name
	Radius       float64 // metres
	SpectralType string

	Elements OrbitalElements
}
