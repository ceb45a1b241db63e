package od

import (
	"gonum.org/v1/gonum/mat"
)

// Jacobian returns the 3x6 sensitivity of the position at mjd to each element
// of o, by centered finite differences with a step of δ times the element's
// value. An element which is exactly zero yields an all zero column. The
// orbit is never modified: each evaluation is on a sibling.
func Jacobian(o Orbit, mjd, δ float64) *mat.Dense {
	H := mat.NewDense(3, 6, nil)
	el := o.Elements()
	for k := SemiMajorAxis; k <= MeanAnomaly; k++ {
		dx := el[k] * δ
		if dx == 0 {
			continue
		}
		plus := WithElement(o, k, el[k]+dx/2).Position(mjd)
		minus := WithElement(o, k, el[k]-dx/2).Position(mjd)
		for j := 0; j < 3; j++ {
			H.Set(j, int(k), (plus[j]-minus[j])/dx)
		}
	}
	return H
}

// assemble stacks the residuals (observed minus computed) and Jacobians of
// every observation into dz (3N) and H (3Nx6).
func assemble(o Orbit, obs []Observation, δ float64) (dz *mat.VecDense, H *mat.Dense) {
	n := len(obs)
	dz = mat.NewVecDense(3*n, nil)
	H = mat.NewDense(3*n, 6, nil)
	for i, ob := range obs {
		R := o.Position(ob.MJD)
		for j := 0; j < 3; j++ {
			dz.SetVec(3*i+j, ob.R[j]-R[j])
		}
		H.Slice(3*i, 3*i+3, 0, 6).(*mat.Dense).Copy(Jacobian(o, ob.MJD, δ))
	}
	return
}
