package core

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultKeplerTolerance bounds |E - e·sin E - M| in radians.
	DefaultKeplerTolerance = 1e-8
	// DefaultKeplerMaxIterations caps Newton-Raphson steps per solve.
	DefaultKeplerMaxIterations = 30

	// eccentricities at or above this seed Newton at M ± e, toward π.
	highEccentricity = 0.8

	twoPi = 2 * math.Pi
)

// ErrNonConvergence marks a Kepler solve that hit its iteration cap. It is a
// precision warning: the accompanying estimate is still usable.
var ErrNonConvergence = errors.New("kepler solve did not converge")

// NonConvergenceError carries the details of a capped Kepler solve.
type NonConvergenceError struct {
	MeanAnomaly  float64
	Eccentricity float64
	Estimate     float64
	Residual     float64
	Iterations   int
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%s: M=%g e=%g after %d iterations (residual %.3g)",
		ErrNonConvergence, e.MeanAnomaly, e.Eccentricity, e.Iterations, e.Residual)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNonConvergence }

// IsPrecisionWarning reports whether err only signals reduced precision, in
// which case the value returned alongside it is a valid best estimate.
func IsPrecisionWarning(err error) bool {
	return errors.Is(err, ErrNonConvergence)
}

// KeplerSolver solves Kepler's equation M = E - e·sin E. The zero value uses
// the package defaults.
type KeplerSolver struct {
	Tolerance     float64
	MaxIterations int
}

// SolveKepler solves Kepler's equation with the default solver settings.
func SolveKepler(meanAnomaly, eccentricity float64) (float64, error) {
	return KeplerSolver{}.Solve(meanAnomaly, eccentricity)
}

// Solve returns the eccentric anomaly E for mean anomaly M (any real value)
// and eccentricity e. Newton steps are kept inside a bracket around the root
// and fall back to bisection when they leave it. When the iteration cap is
// reached it returns the iterate with the smallest residual together with a
// *NonConvergenceError.
func (s KeplerSolver) Solve(meanAnomaly, eccentricity float64) (float64, error) {
	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultKeplerTolerance
	}
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultKeplerMaxIterations
	}

	m := NormalizeAngle(meanAnomaly)
	e := eccentricity

	// |E - M| = e·|sin E| <= e, and E - e·sin E - M is increasing in E.
	lo, hi := math.Max(m-e, 0), math.Min(m+e, twoPi)

	estimate := m
	if e >= highEccentricity {
		if m < math.Pi {
			estimate = m + e
		} else {
			estimate = m - e
		}
	}

	residual := kepler(estimate, e, m)
	best, bestResidual := estimate, residual
	iterations := 0
	for iterations < maxIter && math.Abs(residual) >= tol {
		if residual < 0 {
			lo = estimate
		} else {
			hi = estimate
		}
		next := estimate - residual/(1-e*math.Cos(estimate))
		if !(next > lo && next < hi) {
			next = (lo + hi) / 2
		}
		estimate = next
		residual = kepler(estimate, e, m)
		iterations++
		if math.Abs(residual) < math.Abs(bestResidual) {
			best, bestResidual = estimate, residual
		}
	}

	if math.Abs(bestResidual) >= tol {
		return best, &NonConvergenceError{
			MeanAnomaly:  m,
			Eccentricity: e,
			Estimate:     best,
			Residual:     bestResidual,
			Iterations:   iterations,
		}
	}
	return best, nil
}

func kepler(eccentricAnomaly, eccentricity, meanAnomaly float64) float64 {
	return eccentricAnomaly - eccentricity*math.Sin(eccentricAnomaly) - meanAnomaly
}

// TrueAnomaly converts an eccentric anomaly into the true anomaly using the
// half-angle relation. The result lies in [0, 2π).
func TrueAnomaly(eccentricAnomaly, eccentricity float64) float64 {
	half := eccentricAnomaly / 2
	nu := 2 * math.Atan2(
		math.Sqrt(1+eccentricity)*math.Sin(half),
		math.Sqrt(1-eccentricity)*math.Cos(half),
	)
	return NormalizeAngle(nu)
}

// NormalizeAngle reduces an angle into [0, 2π) with an explicit modulo so
// values crossing a period boundary stay continuous.
func NormalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle, twoPi)
	if wrapped < 0 {
		wrapped += twoPi
	}
	if wrapped >= twoPi {
		wrapped = 0
	}
	return wrapped
}
