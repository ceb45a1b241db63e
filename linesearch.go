package od

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	minSemiMajorAxis = 1.0
	minEccentricity  = 1e-6
	maxEccentricity  = 1 - 1e-6
)

// applyCorrection returns a sibling of o whose elements are moved by α·dx,
// clamped to a ≥ 1, e ∈ [1e-6, 1-1e-6], i ∈ [0, π], the other angles wrapped
// to [0, 2π). The orbit o is not modified.
func (c *Corrector) applyCorrection(o Orbit, dx *mat.VecDense, α float64) Orbit {
	el := o.Elements()
	for k := range el {
		el[k] += α * dx.AtVec(k)
	}
	el[SemiMajorAxis] = math.Max(el[SemiMajorAxis], minSemiMajorAxis)
	el[Eccentricity] = clamp(el[Eccentricity], minEccentricity, maxEccentricity)
	el[Inclination] = clamp(el[Inclination], 0, math.Pi)
	el[RAAN] = wrap2π(el[RAAN])
	el[ArgPerigee] = wrap2π(el[ArgPerigee])
	el[MeanAnomaly] = wrap2π(el[MeanAnomaly])
	return o.With(el)
}

// sumOfSquares returns the squared norm of the position residuals. With
// LastObservationCost only the last observation is scored.
func (c *Corrector) sumOfSquares(o Orbit, obs []Observation) float64 {
	if c.conf.LastObservationCost {
		obs = obs[len(obs)-1:]
	}
	var sos float64
	for _, ob := range obs {
		R := o.Position(ob.MJD)
		for j := 0; j < 3; j++ {
			d := ob.R[j] - R[j]
			sos += d * d
		}
	}
	return sos
}

// lineSearch bisects the fraction α ∈ [0, 1] of dx toward the endpoint with the
// lower sum of squares until the interval is narrower than the tolerance, and
// returns the better endpoint's orbit, sum of squares and fraction.
func (c *Corrector) lineSearch(o Orbit, dx *mat.VecDense, obs []Observation) (Orbit, float64, float64) {
	lo, hi := 0.0, 1.0
	oLo := c.applyCorrection(o, dx, lo)
	oHi := c.applyCorrection(o, dx, hi)
	sLo, sHi := c.sumOfSquares(oLo, obs), c.sumOfSquares(oHi, obs)
	for hi-lo >= c.conf.LineSearchTolerance {
		mid := (lo + hi) / 2
		oMid := c.applyCorrection(o, dx, mid)
		sMid := c.sumOfSquares(oMid, obs)
		if sLo < sHi {
			hi, oHi, sHi = mid, oMid, sMid
		} else {
			lo, oLo, sLo = mid, oMid, sMid
		}
	}
	if sLo < sHi {
		return oLo, sLo, lo
	}
	return oHi, sHi, hi
}
