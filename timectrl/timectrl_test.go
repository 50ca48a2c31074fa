package timectrl

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMappingEpochIsDayZero(t *testing.T) {
	m := DefaultMapping()
	if got := m.ToAdaliaDay(time.Unix(DefaultEpochUnix, 0)); math.Abs(got) > 1e-9 {
		t.Fatalf("ToAdaliaDay(epoch) = %v, want 0", got)
	}
}

func TestMappingOneHourIsOneDay(t *testing.T) {
	m := DefaultMapping()
	at := m.Epoch.Add(36 * time.Hour)
	if got := m.ToAdaliaDay(at); math.Abs(got-36) > 1e-6 {
		t.Fatalf("ToAdaliaDay(epoch+36h) = %v, want 36", got)
	}

	before := m.Epoch.Add(-90 * time.Minute)
	if got := m.ToAdaliaDay(before); math.Abs(got+1.5) > 1e-6 {
		t.Fatalf("ToAdaliaDay(epoch-90m) = %v, want -1.5", got)
	}
}

func TestMappingSubSecondPrecision(t *testing.T) {
	m := DefaultMapping()
	at := m.Epoch.Add(1800*time.Second + 500*time.Millisecond)
	want := 1800.5 / 3600.0
	if got := m.ToAdaliaDay(at); math.Abs(got-want) > 1e-7 {
		t.Fatalf("ToAdaliaDay = %v, want %v", got, want)
	}
}

func TestMappingMatchesUnixSecondsAcrossLeapDays(t *testing.T) {
	m := DefaultMapping()
	for _, at := range []time.Time{
		time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, time.February, 29, 12, 0, 0, 0, time.UTC),
		time.Date(2099, time.December, 31, 18, 0, 0, 0, time.UTC),
	} {
		want := float64(at.Unix()-DefaultEpochUnix) / DefaultSecondsPerDay
		if got := m.ToAdaliaDay(at); math.Abs(got-want) > 1e-5 {
			t.Fatalf("ToAdaliaDay(%v) = %v, want %v", at, got, want)
		}
	}
}

func TestMappingRoundTrip(t *testing.T) {
	m, err := NewMapping(DefaultEpochUnix, 60)
	if err != nil {
		t.Fatalf("NewMapping: %v", err)
	}
	start := time.Date(2025, time.March, 3, 12, 30, 15, 0, time.UTC)
	day := m.ToAdaliaDay(start)
	back := m.FromAdaliaDay(day)
	if diff := back.Sub(start); diff > time.Millisecond || diff < -time.Millisecond {
		t.Fatalf("round trip drifted by %v (day %v)", diff, day)
	}
}

func TestNewMappingRejectsNonPositiveScale(t *testing.T) {
	if _, err := NewMapping(0, 0); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("NewMapping(0, 0) err = %v, want ErrInvalidMapping", err)
	}
}

func TestWallClockUsesMapping(t *testing.T) {
	m := DefaultMapping()
	c := NewWallClock(m)
	c.now = func() time.Time { return m.Epoch.Add(10 * time.Hour) }
	if got := c.Now(); math.Abs(got-10) > 1e-6 {
		t.Fatalf("Now() = %v, want 10", got)
	}
}

func TestFixedClock(t *testing.T) {
	var c Clock = FixedClock(42.5)
	if c.Now() != 42.5 {
		t.Fatalf("FixedClock.Now() = %v, want 42.5", c.Now())
	}
}
