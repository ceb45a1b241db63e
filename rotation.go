package od

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PQW2ECI converts a perifocal vector to the inertial frame, i.e. R3(-Ω)·R1(-i)·R3(-ω)·v.
func PQW2ECI(i, ω, Ω float64, vI []float64) []float64 {
	var tmp, rot mat.Dense
	tmp.Mul(R1(-i), R3(-ω))
	rot.Mul(R3(-Ω), &tmp)
	return MxV33(&rot, vI)
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a 3x3 matrix with a 3x1 vector.
func MxV33(m mat.Matrix, v []float64) []float64 {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(3, v[:3]))
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}
