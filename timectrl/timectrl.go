package timectrl

import (
	"errors"
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

const (
	// DefaultEpochUnix is the wall-clock instant of Adalia day 0
	// (2021-04-17T14:00:00Z).
	DefaultEpochUnix int64 = 1618668000
	// DefaultSecondsPerDay maps one real hour onto one Adalia day.
	DefaultSecondsPerDay = 3600.0

	secondsPerJulianDay = 86400.0
)

// ErrInvalidMapping is returned when a Mapping cannot convert time.
var ErrInvalidMapping = errors.New("invalid adalia time mapping")

// Clock yields the current simulation time as an Adalia day. The numeric
// core depends on this abstraction rather than on the wall clock.
type Clock interface {
	Now() float64
}

// Mapping is the fixed linear relation between wall-clock time and Adalia
// days: day = (t - Epoch) / SecondsPerDay.
type Mapping struct {
	Epoch         time.Time
	SecondsPerDay float64
}

// DefaultMapping returns the mapping used by the live belt.
func DefaultMapping() Mapping {
	return Mapping{
		Epoch:         time.Unix(DefaultEpochUnix, 0).UTC(),
		SecondsPerDay: DefaultSecondsPerDay,
	}
}

// NewMapping builds a mapping from a Unix epoch and a scale factor.
func NewMapping(epochUnix int64, secondsPerDay float64) (Mapping, error) {
	if secondsPerDay <= 0 {
		return Mapping{}, fmt.Errorf("%w: seconds per day %v must be positive", ErrInvalidMapping, secondsPerDay)
	}
	return Mapping{Epoch: time.Unix(epochUnix, 0).UTC(), SecondsPerDay: secondsPerDay}, nil
}

// ToAdaliaDay converts a wall-clock instant into an Adalia day. The elapsed
// time is the difference of the two instants' Julian dates; go-satellite's
// JDay is exact for the years 1901 through 2099.
func (m Mapping) ToAdaliaDay(t time.Time) float64 {
	elapsed := (julianDate(t) - julianDate(m.Epoch)) * secondsPerJulianDay
	return elapsed / m.SecondsPerDay
}

// FromAdaliaDay converts an Adalia day back into wall-clock UTC time.
func (m Mapping) FromAdaliaDay(day float64) time.Time {
	offset := time.Duration(day * m.SecondsPerDay * float64(time.Second))
	return m.Epoch.Add(offset).UTC()
}

// julianDate returns the Julian date of t with sub-second precision;
// go-satellite's JDay only takes whole seconds.
func julianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/1e9/secondsPerJulianDay
}

// WallClock reads the host clock and maps it onto Adalia days.
type WallClock struct {
	Mapping Mapping
	now     func() time.Time
}

// NewWallClock returns a Clock driven by time.Now.
func NewWallClock(m Mapping) *WallClock {
	return &WallClock{Mapping: m, now: time.Now}
}

// Now returns the current Adalia day. Implements Clock.
func (c *WallClock) Now() float64 {
	return c.Mapping.ToAdaliaDay(c.now())
}

// FixedClock always reports the same Adalia day.
type FixedClock float64

// Now implements Clock.
func (c FixedClock) Now() float64 { return float64(c) }
