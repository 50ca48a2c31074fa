// Package kb holds the read-only asteroid catalog and the sources it is
// loaded from.
package kb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/signalsfoundry/adalia-navigator/model"
)

var (
	// ErrBodyNotFound is returned when a body id is not in the catalog.
	ErrBodyNotFound = errors.New("body not found")
	// ErrDuplicateBody is returned when a source yields the same id twice.
	ErrDuplicateBody = errors.New("duplicate body id")
)

// Source yields the full set of catalog bodies.
type Source interface {
	Load(ctx context.Context) ([]model.Body, error)
}

// Catalog is an immutable id-indexed set of bodies. It is safe for
// concurrent use without locking.
type Catalog struct {
	bodies map[int]model.Body
	ids    []int
}

// NewCatalog validates bodies and indexes them by id. Periods missing from
// the input are derived from the semi-major axis.
func NewCatalog(bodies []model.Body) (*Catalog, error) {
	c := &Catalog{
		bodies: make(map[int]model.Body, len(bodies)),
		ids:    make([]int, 0, len(bodies)),
	}
	for _, b := range bodies {
		if _, exists := c.bodies[b.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateBody, b.ID)
		}
		b.Elements.BodyID = b.ID
		b.Elements = b.Elements.WithDerivedPeriod()
		if err := b.Elements.Validate(); err != nil {
			return nil, fmt.Errorf("body %d: %w", b.ID, err)
		}
		c.bodies[b.ID] = b
		c.ids = append(c.ids, b.ID)
	}
	sort.Ints(c.ids)
	return c, nil
}

// LoadCatalog reads every body from src and builds a catalog.
func LoadCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		return nil, fmt.Errorf("load catalog: nil source")
	}
	bodies, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return NewCatalog(bodies)
}

// Lookup returns the body with the given id.
func (c *Catalog) Lookup(id int) (model.Body, error) {
	b, ok := c.bodies[id]
	if !ok {
		return model.Body{}, fmt.Errorf("%w: %d", ErrBodyNotFound, id)
	}
	return b, nil
}

// Elements returns only the orbital elements of a body.
func (c *Catalog) Elements(id int) (model.OrbitalElements, error) {
	b, err := c.Lookup(id)
	if err != nil {
		return model.OrbitalElements{}, err
	}
	return b.Elements, nil
}

// LookupMany resolves ids in order, failing on the first unknown id.
func (c *Catalog) LookupMany(ids []int) ([]model.Body, error) {
	out := make([]model.Body, 0, len(ids))
	for _, id := range ids {
		b, err := c.Lookup(id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// List returns every body ordered by id.
func (c *Catalog) List() []model.Body {
	out := make([]model.Body, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.bodies[id])
	}
	return out
}

// Len returns the number of bodies.
func (c *Catalog) Len() int {
	return len(c.ids)
}
