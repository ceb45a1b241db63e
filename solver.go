package od

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Method selects how a correction is computed from the normal equations.
type Method uint8

const (
	// GaussNewton solves the undamped normal equations.
	GaussNewton Method = iota + 1
	// LevenbergMarquardt damps the normal equations with an adaptive λ.
	LevenbergMarquardt
)

func (m Method) String() string {
	switch m {
	case GaussNewton:
		return "gauss-newton"
	case LevenbergMarquardt:
		return "levenberg-marquardt"
	default:
		panic(fmt.Errorf("unknown method %d", uint8(m)))
	}
}

// ParseMethod returns the method of the provided name.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gauss-newton", "gn":
		return GaussNewton, nil
	case "levenberg-marquardt", "lm":
		return LevenbergMarquardt, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Valid returns whether m is a known method.
func (m Method) Valid() bool {
	return m == GaussNewton || m == LevenbergMarquardt
}

// correctionState is carried across the iterations of one differential correction.
type correctionState struct {
	method Method
	ν      float64 // damping multiplier
	λ      float64 // damping factor, only used by LevenbergMarquardt
	dz     *mat.VecDense
	H      *mat.Dense
	dx     *mat.VecDense
}

func (c *Corrector) newCorrectionState(method Method) *correctionState {
	return &correctionState{method: method, ν: c.conf.DampingMultiplier, λ: c.conf.InitialDamping}
}

// solve computes s.dx from s.dz and s.H. Levenberg-Marquardt evaluates its
// trial corrections as full steps from o against obs, and may update s.λ. The
// baseline is the null correction, so a seed outside the element bounds is
// scored once clamped.
func (c *Corrector) solve(s *correctionState, o Orbit, obs []Observation) error {
	if rows, cols := s.H.Dims(); rows < cols {
		return fmt.Errorf("%w: %d residuals for %d elements", ErrSingular, rows, cols)
	}
	var HtH mat.Dense
	HtH.Mul(s.H.T(), s.H)
	var Htdz mat.VecDense
	Htdz.MulVec(s.H.T(), s.dz)

	if s.method == GaussNewton {
		dx, err := solveNormal(&HtH, &Htdz, 0)
		if err != nil {
			return err
		}
		s.dx = dx
		return nil
	}

	baseline := c.sumOfSquares(c.applyCorrection(o, mat.NewVecDense(6, nil), 1), obs)
	trial := func(λ float64) (*mat.VecDense, float64, error) {
		dx, err := solveNormal(&HtH, &Htdz, λ)
		if err != nil {
			return nil, 0, err
		}
		return dx, c.sumOfSquares(c.applyCorrection(o, dx, 1), obs), nil
	}
	dxL, sosL, err := trial(s.λ / s.ν)
	if err != nil {
		return err
	}
	dxG, sosG, err := trial(s.λ)
	if err != nil {
		return err
	}
	for sosL >= baseline && sosG >= baseline && s.λ < c.conf.DampingCeiling {
		s.λ *= s.ν
		if dxL, sosL, err = trial(s.λ / s.ν); err != nil {
			return err
		}
		if dxG, sosG, err = trial(s.λ); err != nil {
			return err
		}
	}
	if sosL < baseline {
		s.λ /= s.ν
		s.dx = dxL
	} else {
		s.dx = dxG
	}
	return nil
}

// solveNormal solves (A + λ·diag(A))·x = b. Parameters whose diagonal term is
// zero (an all zero Jacobian column) are left out of the system and get no
// correction.
func solveNormal(A *mat.Dense, b *mat.VecDense, λ float64) (*mat.VecDense, error) {
	n := b.Len()
	active := make([]int, 0, n)
	for k := 0; k < n; k++ {
		if A.At(k, k) != 0 {
			active = append(active, k)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: the design matrix is null", ErrSingular)
	}
	m := len(active)
	Ar := mat.NewDense(m, m, nil)
	br := mat.NewVecDense(m, nil)
	for r, kr := range active {
		br.SetVec(r, b.AtVec(kr))
		for col, kc := range active {
			Ar.Set(r, col, A.At(kr, kc))
		}
		Ar.Set(r, r, Ar.At(r, r)*(1+λ))
	}
	var xr mat.VecDense
	if err := xr.SolveVec(Ar, br); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	x := mat.NewVecDense(n, nil)
	for r, k := range active {
		x.SetVec(k, xr.AtVec(r))
	}
	return x, nil
}
