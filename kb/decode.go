package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// internal JSON shapes for the belt dump format.
type bodyJSON struct {
	ID           int          `json:"i"`
	Name         string       `json:"n"`
	Radius       float64      `json:"r"`
	SpectralType flexString   `json:"spectralType"`
	Orbital      *orbitalJSON `json:"orbital"`
}

type orbitalJSON struct {
	A float64 `json:"a"`
	E float64 `json:"e"`
	I float64 `json:"i"`
	O float64 `json:"o"`
	W float64 `json:"w"`
	M float64 `json:"m"`
	// Optional; derived from a when absent.
	P float64 `json:"p"`
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("spectral type: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("spectral type %q: %w", n, err)
	}
	*s = flexString(n.String())
	return nil
}

// DecodeBodies reads a JSON array of belt bodies. Each entry carries its id
// (i), optional name (n), radius in metres (r), spectral type and an
// orbital block with a, e, i, o, w, m (angles in radians).
func DecodeBodies(r io.Reader) ([]model.Body, error) {
	var payload []bodyJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bodies: %w", err)
	}

	bodies := make([]model.Body, 0, len(payload))
	for idx, b := range payload {
		if b.Orbital == nil {
			return nil, fmt.Errorf("decode bodies: entry %d (id %d): %w: missing orbital block", idx, b.ID, model.ErrInvalidElements)
		}
		bodies = append(bodies, model.Body{
			ID:           b.ID,
			Name:         b.Name,
			Radius:       b.Radius,
			SpectralType: string(b.SpectralType),
			Elements: model.OrbitalElements{
				BodyID:        b.ID,
				SemiMajorAxis: b.Orbital.A,
				Eccentricity:  b.Orbital.E,
				Inclination:   b.Orbital.I,
				AscendingNode: b.Orbital.O,
				ArgPeriapsis:  b.Orbital.W,
				MeanAnomaly:   b.Orbital.M,
				Period:        b.Orbital.P,
			},
		})
	}
	return bodies, nil
}

// FileSource loads bodies from a JSON file on disk.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load(_ context.Context) ([]model.Body, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	bodies, err := DecodeBodies(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return bodies, nil
}

// StaticSource serves a fixed slice of bodies, for tests and embedding.
type StaticSource []model.Body

// Load implements Source.
func (s StaticSource) Load(_ context.Context) ([]model.Body, error) {
	return append([]model.Body(nil), s...), nil
}
