// Package cache stores propagated positions and orbit paths so repeated
// queries skip the Kepler solve.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/signalsfoundry/adalia-navigator/model"
)

const (
	defaultTTL        = time.Minute
	defaultMaxEntries = 10_000
)

// Key identifies a cached result. Samples is zero for a single position at
// Day and the sample count for a full orbit path, where Day is unused.
type Key struct {
	BodyID  int
	Day     float64
	Samples int
}

// PositionKey addresses the position of a body at an Adalia day.
func PositionKey(bodyID int, day float64) Key {
	return Key{BodyID: bodyID, Day: day}
}

// OrbitKey addresses a body's full orbit path at a sample count.
func OrbitKey(bodyID, samples int) Key {
	return Key{BodyID: bodyID, Samples: samples}
}

// String renders the key as "pos/<id>/<day>" or "orbit/<id>/<samples>".
func (k Key) String() string {
	if k.Samples > 0 {
		return "orbit/" + strconv.Itoa(k.BodyID) + "/" + strconv.Itoa(k.Samples)
	}
	return "pos/" + strconv.Itoa(k.BodyID) + "/" + strconv.FormatFloat(k.Day, 'g', -1, 64)
}

// Store is a position cache backend.
type Store interface {
	Get(ctx context.Context, key Key) ([]model.Position, bool, error)
	Set(ctx context.Context, key Key, positions []model.Position) error
}

type entry struct {
	positions []model.Position
	stored    time.Time
}

// Memory is a mutex-guarded TTL cache bounded by entry count.
type Memory struct {
	mu         sync.RWMutex
	entries    map[Key]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	hits       int64
	misses     int64
	evictions  int64
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries bounds the number of cached results.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates a cache whose entries live for ttl; zero uses a minute.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	m := &Memory{
		entries:    make(map[Key]entry),
		ttl:        ttl,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns how long an entry lives after Set.
func (m *Memory) TTL() time.Duration { return m.ttl }

// Get returns a copy of the cached positions when present and fresh.
func (m *Memory) Get(_ context.Context, key Key) ([]model.Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if ok && m.now().Sub(e.stored) > m.ttl {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		m.misses++
		return nil, false, nil
	}
	m.hits++
	return clonePositions(e.positions), true, nil
}

// Set stores a copy of positions. When full, expired entries are dropped
// first, then the oldest entry.
func (m *Memory) Set(_ context.Context, key Key, positions []model.Position) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.entries[key] = entry{positions: clonePositions(positions), stored: now}
	return nil
}

func (m *Memory) evictLocked(now time.Time) {
	var (
		oldestKey Key
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if now.Sub(e.stored) > m.ttl {
			delete(m.entries, k)
			m.evictions++
			continue
		}
		if !found || e.stored.Before(oldest) {
			oldestKey, oldest, found = k, e.stored, true
		}
	}
	if len(m.entries) >= m.maxEntries && found {
		delete(m.entries, oldestKey)
		m.evictions++
	}
}

// Len returns the number of stored entries, fresh or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats reports lookup and eviction counters.
func (m *Memory) Stats() (hits, misses, evictions int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses, m.evictions
}

func clonePositions(src []model.Position) []model.Position {
	if src == nil {
		return nil
	}
	return append(make([]model.Position, 0, len(src)), src...)
}
