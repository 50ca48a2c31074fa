package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// DefaultTransferSpeed is the straight-line transfer speed in AU per Adalia day.
const DefaultTransferSpeed = 0.05

// ErrInvalidTransferSpeed is returned for non-positive or non-finite speeds.
var ErrInvalidTransferSpeed = errors.New("invalid transfer speed")

// CostModel estimates one transfer between two positions. Costs must be
// non-negative; the planner's pruning relies on it.
type CostModel interface {
	Cost(origin, dest model.Position, departDay float64) (arrivalDay, cost float64)
}

// CostFunc adapts a plain function to CostModel.
type CostFunc func(origin, dest model.Position, departDay float64) (arrivalDay, cost float64)

// Cost implements CostModel.
func (f CostFunc) Cost(origin, dest model.Position, departDay float64) (float64, float64) {
	return f(origin, dest, departDay)
}

// EuclideanCostModel is the time-optimal proxy: the straight-line distance at
// departure covered at a constant speed. The cost equals the duration.
type EuclideanCostModel struct {
	Speed float64 // AU per Adalia day
}

// NewEuclideanCostModel validates speed.
func NewEuclideanCostModel(speed float64) (EuclideanCostModel, error) {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return EuclideanCostModel{}, fmt.Errorf("%w: %v", ErrInvalidTransferSpeed, speed)
	}
	return EuclideanCostModel{Speed: speed}, nil
}

// Cost implements CostModel.
func (m EuclideanCostModel) Cost(origin, dest model.Position, departDay float64) (float64, float64) {
	duration := origin.DistanceTo(dest) / m.Speed
	return departDay + duration, duration
}
