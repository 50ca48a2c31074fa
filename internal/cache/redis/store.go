// Package redis is a cache.Store backed by Redis via go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/signalsfoundry/adalia-navigator/internal/cache"
	"github.com/signalsfoundry/adalia-navigator/model"
)

// DefaultKeyPrefix namespaces navigator keys.
const DefaultKeyPrefix = "navigator:pos:"

// Config holds connection and keying parameters.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Store keeps each result as a string value with a TTL. Positions are
// encoded as "x,y,z" triples joined by ";" in shortest round-trip form.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ cache.Store = (*Store)(nil)

// Dial connects and pings Redis.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return New(rdb, cfg.KeyPrefix, cfg.TTL), nil
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k cache.Key) string {
	return s.prefix + k.String()
}

// Get implements cache.Store.
func (s *Store) Get(ctx context.Context, k cache.Key) ([]model.Position, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(k)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get %s: %w", k, err)
	}
	positions, err := decodePositions(raw)
	if err != nil {
		return nil, false, fmt.Errorf("redis: decode %s: %w", k, err)
	}
	return positions, true, nil
}

// Set implements cache.Store.
func (s *Store) Set(ctx context.Context, k cache.Key, positions []model.Position) error {
	if err := s.rdb.Set(ctx, s.key(k), encodePositions(positions), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", k, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func encodePositions(positions []model.Position) string {
	var b strings.Builder
	for i, p := range positions {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Z, 'g', -1, 64))
	}
	return b.String()
}

func decodePositions(raw string) ([]model.Position, error) {
	if raw == "" {
		return []model.Position{}, nil
	}
	triples := strings.Split(raw, ";")
	out := make([]model.Position, 0, len(triples))
	for _, triple := range triples {
		parts := strings.Split(triple, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed triple %q", triple)
		}
		var xyz [3]float64
		for i, part := range parts {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("triple %q: %w", triple, err)
			}
			xyz[i] = v
		}
		out = append(out, model.Position{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return out, nil
}
