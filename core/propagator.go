package core

import (
	"errors"

	"github.com/signalsfoundry/adalia-navigator/model"
	"github.com/signalsfoundry/adalia-navigator/timectrl"
)

// DefaultOrbitSamples is the number of distinct points in a full orbit path.
const DefaultOrbitSamples = 360

// DefaultMaxOrbitSamples bounds the resolution FullOrbitPath will build.
const DefaultMaxOrbitSamples = 10_000

// PrecisionObserver is notified of every Kepler solve that hit the
// iteration cap. The propagation result is still returned to the caller.
type PrecisionObserver func(el model.OrbitalElements, warn *NonConvergenceError)

// Propagator converts orbital elements and an Adalia day into positions.
// It holds only read-only configuration and is safe for concurrent use.
type Propagator struct {
	solver      KeplerSolver
	sampleCount int
	maxSamples  int
	clock       timectrl.Clock
	observer    PrecisionObserver
}

// PropagatorOption configures a Propagator.
type PropagatorOption func(*Propagator)

// WithSolver overrides the Kepler solver tolerance and iteration cap.
func WithSolver(s KeplerSolver) PropagatorOption {
	return func(p *Propagator) { p.solver = s }
}

// WithSampleCount sets the default number of samples for FullOrbitPath.
// Higher values trade computation for path fidelity.
func WithSampleCount(n int) PropagatorOption {
	return func(p *Propagator) {
		if n > 0 {
			p.sampleCount = n
		}
	}
}

// WithMaxSampleCount caps the sample count FullOrbitPath accepts.
func WithMaxSampleCount(n int) PropagatorOption {
	return func(p *Propagator) {
		if n > 0 {
			p.maxSamples = n
		}
	}
}

// WithClock sets the clock used by CurrentPosition.
func WithClock(c timectrl.Clock) PropagatorOption {
	return func(p *Propagator) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithPrecisionObserver registers a callback for non-converged solves.
func WithPrecisionObserver(fn PrecisionObserver) PropagatorOption {
	return func(p *Propagator) { p.observer = fn }
}

// NewPropagator constructs a propagator. Without WithClock it reads the wall
// clock through the default Adalia mapping.
func NewPropagator(opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		sampleCount: DefaultOrbitSamples,
		maxSamples:  DefaultMaxOrbitSamples,
		clock:       timectrl.NewWallClock(timectrl.DefaultMapping()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.sampleCount > p.maxSamples {
		p.sampleCount = p.maxSamples
	}
	return p
}

// Now returns the current Adalia day according to the propagator's clock.
func (p *Propagator) Now() float64 {
	return p.clock.Now()
}

// SampleCount returns the default FullOrbitPath resolution.
func (p *Propagator) SampleCount() int {
	return p.sampleCount
}

// MaxSampleCount returns the largest resolution FullOrbitPath will build.
func (p *Propagator) MaxSampleCount() int {
	return p.maxSamples
}

// PositionAt returns the position of a body at the given Adalia day.
//
// A non-nil error satisfying IsPrecisionWarning comes with a valid
// best-estimate position. Any other error means no position is available.
func (p *Propagator) PositionAt(el model.OrbitalElements, day float64) (model.Position, error) {
	el, err := prepare(el)
	if err != nil {
		return model.Position{}, err
	}
	meanAnomaly := el.MeanAnomaly + twoPi*(day-el.Epoch)/el.Period
	return p.positionFromMeanAnomaly(el, meanAnomaly)
}

// CurrentPosition returns the body's position at the clock's current day.
func (p *Propagator) CurrentPosition(el model.OrbitalElements) (model.Position, error) {
	return p.PositionAt(el, p.clock.Now())
}

// FullOrbitPath samples sampleCount evenly spaced mean anomalies over
// [0, 2π) and closes the path with a copy of the first point. A
// non-positive sampleCount uses the propagator default; counts above
// MaxSampleCount are clamped to it.
func (p *Propagator) FullOrbitPath(el model.OrbitalElements, sampleCount int) (model.OrbitPath, error) {
	el, err := prepare(el)
	if err != nil {
		return nil, err
	}
	if sampleCount <= 0 {
		sampleCount = p.sampleCount
	}
	sampleCount = min(sampleCount, p.maxSamples)

	path := make(model.OrbitPath, 0, sampleCount+1)
	var warn error
	for k := 0; k < sampleCount; k++ {
		meanAnomaly := twoPi * float64(k) / float64(sampleCount)
		pos, err := p.positionFromMeanAnomaly(el, meanAnomaly)
		if err != nil {
			if !IsPrecisionWarning(err) {
				return nil, err
			}
			if warn == nil {
				warn = err
			}
		}
		path = append(path, pos)
	}
	path = append(path, path[0])
	return path, warn
}

func (p *Propagator) positionFromMeanAnomaly(el model.OrbitalElements, meanAnomaly float64) (model.Position, error) {
	eccentric, err := p.solver.Solve(meanAnomaly, el.Eccentricity)
	if err != nil {
		var nc *NonConvergenceError
		if !errors.As(err, &nc) {
			return model.Position{}, err
		}
		if p.observer != nil {
			p.observer(el, nc)
		}
	}

	nu := TrueAnomaly(eccentric, el.Eccentricity)
	return toBeltFrame(el, orbitalPlanePosition(el, nu)), err
}

func prepare(el model.OrbitalElements) (model.OrbitalElements, error) {
	el = el.WithDerivedPeriod()
	return el, el.Validate()
}
