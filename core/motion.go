package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// ErrNoPosition indicates a motion model has no position for a body.
var ErrNoPosition = errors.New("no position for body")

// MotionModel yields a body's position at an Adalia day. *Propagator is the
// Keplerian implementation.
type MotionModel interface {
	PositionAt(el model.OrbitalElements, day float64) (model.Position, error)
}

var _ MotionModel = (*Propagator)(nil)

// StaticMotionModel pins bodies to fixed coordinates regardless of time.
type StaticMotionModel struct {
	positions map[int]model.Position
}

// NewStaticMotionModel copies positions keyed by body ID.
func NewStaticMotionModel(positions map[int]model.Position) *StaticMotionModel {
	cp := make(map[int]model.Position, len(positions))
	for id, pos := range positions {
		cp[id] = pos
	}
	return &StaticMotionModel{positions: cp}
}

// FreezeAt snapshots every body's position at day using m, producing a
// static model. Precision warnings are kept; the first one is returned.
func FreezeAt(m MotionModel, bodies []model.OrbitalElements, day float64) (*StaticMotionModel, error) {
	positions := make(map[int]model.Position, len(bodies))
	var warn error
	for _, el := range bodies {
		pos, err := m.PositionAt(el, day)
		if err != nil {
			if !IsPrecisionWarning(err) {
				return nil, fmt.Errorf("freeze body %d: %w", el.BodyID, err)
			}
			if warn == nil {
				warn = err
			}
		}
		positions[el.BodyID] = pos
	}
	return &StaticMotionModel{positions: positions}, warn
}

// PositionAt ignores day and returns the pinned position.
func (m *StaticMotionModel) PositionAt(el model.OrbitalElements, _ float64) (model.Position, error) {
	pos, ok := m.positions[el.BodyID]
	if !ok {
		return model.Position{}, fmt.Errorf("%w: %d", ErrNoPosition, el.BodyID)
	}
	return pos, nil
}
