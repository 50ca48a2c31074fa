package core

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// perifocalToBelt returns the rotation R3(-Ω)·R1(-i)·R3(-ω) taking perifocal
// coordinates (x toward periapsis, z along the orbit normal) into the belt
// reference frame.
func perifocalToBelt(el model.OrbitalElements) *mat.Dense {
	sO, cO := math.Sincos(el.AscendingNode)
	si, ci := math.Sincos(el.Inclination)
	sw, cw := math.Sincos(el.ArgPeriapsis)

	return mat.NewDense(3, 3, []float64{
		cO*cw - sO*sw*ci, -cO*sw - sO*cw*ci, sO * si,
		sO*cw + cO*sw*ci, -sO*sw + cO*cw*ci, -cO * si,
		sw * si, cw * si, ci,
	})
}

// orbitalPlanePosition returns the perifocal position for true anomaly nu.
func orbitalPlanePosition(el model.OrbitalElements, nu float64) *mat.VecDense {
	e := el.Eccentricity
	r := el.SemiMajorAxis * (1 - e*e) / (1 + e*math.Cos(nu))
	sNu, cNu := math.Sincos(nu)
	return mat.NewVecDense(3, []float64{r * cNu, r * sNu, 0})
}

// toBeltFrame rotates a perifocal vector into the belt frame.
func toBeltFrame(el model.OrbitalElements, perifocal *mat.VecDense) model.Position {
	var out mat.VecDense
	out.MulVec(perifocalToBelt(el), perifocal)
	return model.Position{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
