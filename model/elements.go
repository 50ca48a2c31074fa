package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidElements indicates orbital elements that do not describe a
// closed, bound orbit.
var ErrInvalidElements = errors.New("invalid orbital elements")

// DaysPerYear converts Kepler's third law periods from years to Adalia days.
const DaysPerYear = 365.25

// OrbitalElements holds the classical Keplerian elements of one body.
// Angles are radians, SemiMajorAxis is AU, Period and Epoch are Adalia days.
// Values are never mutated after loading; copy freely.
type OrbitalElements struct {
	BodyID int

	SemiMajorAxis float64 // a
	Eccentricity  float64 // e, 0 <= e < 1
	Inclination   float64 // i
	AscendingNode float64 // Ω, longitude of the ascending node
	ArgPeriapsis  float64 // ω
	MeanAnomaly   float64 // M₀ at Epoch

	// Period is the orbital period. Zero means "derive from SemiMajorAxis".
	Period float64
	// Epoch is the Adalia day at which MeanAnomaly is valid.
	Epoch float64
}

// Validate reports whether the elements describe a bound orbit the engine
// can propagate.
func (el OrbitalElements) Validate() error {
	switch {
	case math.IsNaN(el.SemiMajorAxis) || el.SemiMajorAxis <= 0:
		return fmt.Errorf("%w: body %d: semi-major axis %v must be positive", ErrInvalidElements, el.BodyID, el.SemiMajorAxis)
	case math.IsNaN(el.Eccentricity) || el.Eccentricity < 0 || el.Eccentricity >= 1:
		return fmt.Errorf("%w: body %d: eccentricity %v outside [0, 1)", ErrInvalidElements, el.BodyID, el.Eccentricity)
	case el.Period < 0 || math.IsNaN(el.Period) || math.IsInf(el.Period, 0):
		return fmt.Errorf("%w: body %d: period %v must be positive", ErrInvalidElements, el.BodyID, el.Period)
	}
	for _, angle := range []float64{el.Inclination, el.AscendingNode, el.ArgPeriapsis, el.MeanAnomaly, el.Epoch} {
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			return fmt.Errorf("%w: body %d: non-finite angle or epoch", ErrInvalidElements, el.BodyID)
		}
	}
	return nil
}

// WithDerivedPeriod returns a copy whose Period is filled from Kepler's third
// law when it was left at zero.
func (el OrbitalElements) WithDerivedPeriod() OrbitalElements {
	if el.Period == 0 && el.SemiMajorAxis > 0 {
		el.Period = DaysPerYear * math.Sqrt(el.SemiMajorAxis*el.SemiMajorAxis*el.SemiMajorAxis)
	}
	return el
}

// Periapsis returns the closest distance to the focus, a(1-e).
func (el OrbitalElements) Periapsis() float64 {
	return el.SemiMajorAxis * (1 - el.Eccentricity)
}

// Apoapsis returns the farthest distance from the focus, a(1+e).
func (el OrbitalElements) Apoapsis() float64 {
	return el.SemiMajorAxis * (1 + el.Eccentricity)
}
