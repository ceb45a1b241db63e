package od

import (
	"fmt"
	"math"
)

// Preliminary is the outcome of Gauss's method.
type Preliminary struct {
	Orbit       *KeplerOrbit // nil if no physically plausible orbit exists
	SectorRatio float64      // η, ratio of the sector to the triangle area
	Iterations  int          // secant iterations spent on η
	Converged   bool         // false if η is the last iterate after the iteration cap
}

// DeterminePreliminaryOrbit returns the two body orbit through both positions
// (Earth radii) at the given MJDs with the default configuration, or nil if
// that orbit is not plausible for an Earth satellite.
func DeterminePreliminaryOrbit(tA float64, rA []float64, tB float64, rB []float64) (*KeplerOrbit, error) {
	prelim, err := defaultCorrector().PreliminaryOrbit(Observation{tA, rA}, Observation{tB, rB})
	return prelim.Orbit, err
}

// PreliminaryOrbit implements Gauss's method: the orbit connecting two
// positions is found from the ratio of the sector to the triangle swept between
// them. The orbit's epoch is the first observation's. Malformed inputs return
// an error, whereas an implausible orbit is a nil Orbit in the result.
func (c *Corrector) PreliminaryOrbit(obsA, obsB Observation) (Preliminary, error) {
	if err := obsA.Validate(); err != nil {
		return Preliminary{}, err
	}
	if err := obsB.Validate(); err != nil {
		return Preliminary{}, err
	}
	switch {
	case obsA.MJD == obsB.MJD:
		return Preliminary{}, fmt.Errorf("%w: both at MJD %f", ErrTimeSpan, obsA.MJD)
	case obsB.MJD < obsA.MJD:
		return Preliminary{}, fmt.Errorf("%w: %f precedes %f", ErrObservationOrder, obsB.MJD, obsA.MJD)
	}
	rA, rB := obsA.R, obsB.R
	sA, sB := norm(rA), norm(rB)
	eA := unit(rA)
	// In plane basis: eA and e0, which is rB without its eA component.
	fac := dot(rB, eA)
	r0 := make([]float64, 3)
	for j := 0; j < 3; j++ {
		r0[j] = rB[j] - fac*eA[j]
	}
	s0 := norm(r0)
	if sA == 0 || s0 <= 1e-12*sB {
		return Preliminary{}, fmt.Errorf("%w: %v and %v", ErrCollinear, rA, rB)
	}
	e0 := unit(r0)
	// Gaussian vector, i.e. the unit orbit normal.
	W := cross(eA, e0)
	Ω := math.Atan2(W[0], -W[1])
	i := math.Atan2(math.Sqrt(W[0]*W[0]+W[1]*W[1]), W[2])
	var u float64
	if i == 0 {
		u = math.Atan2(rA[1], rA[0])
	} else {
		u = math.Atan2(eA[2], -eA[0]*W[1]+eA[1]*W[0])
	}

	τ := math.Sqrt(c.conf.Body.GMER()) * DaySeconds * math.Abs(obsB.MJD-obsA.MJD)
	η, iter, converged := c.sectorRatio(rA, rB, τ)
	if !converged {
		c.logger.Log("level", "warning", "subsys", "gauss", "status", "sector ratio not converged", "iterations", iter, "eta", η)
	}
	prelim := Preliminary{SectorRatio: η, Iterations: iter, Converged: converged}

	p := math.Pow(sA*s0*η/τ, 2)
	cosΔν := fac / sB
	sinΔν := s0 / sB
	ecosν := p/sA - 1
	esinν := (ecosν*cosΔν - (p/sB - 1)) / sinΔν
	e := math.Hypot(ecosν, esinν)
	ν := math.Atan2(esinν, ecosν)
	ω := u - ν
	a := p / (1 - e*e)
	E := math.Atan2(math.Sqrt(1-e*e)*esinν, ecosν+e*e)
	M := E - e*math.Sin(E)

	el := Elements{a, e, i, wrap2π(Ω), wrap2π(ω), wrap2π(M)}
	if !c.plausible(el) {
		c.logger.Log("level", "notice", "subsys", "gauss", "status", "no valid orbit", "elements", el)
		return prelim, nil
	}
	prelim.Orbit = NewKeplerOrbitAround(el, obsA.MJD, c.conf.Body)
	return prelim, nil
}

// plausible returns whether the elements describe a closed orbit whose
// perigee is above the surface and apogee is below the configured ceiling.
func (c *Corrector) plausible(el Elements) bool {
	a, e := el[SemiMajorAxis], el[Eccentricity]
	return e > 0 && e < 1 && a*(1-e) > c.conf.MinPerigee && a*(1+e) < c.conf.MaxApogee
}

// sectorRatio finds η with a secant method started from Hansen's approximation.
func (c *Corrector) sectorRatio(rA, rB []float64, τ float64) (η2 float64, iter int, converged bool) {
	sA, sB := norm(rA), norm(rB)
	κ := math.Sqrt(2 * (sA*sB + dot(rA, rB)))
	m := τ * τ / math.Pow(κ, 3)
	l := (sA+sB)/(2*κ) - 0.5
	ηMin := math.Sqrt(m / (l + 1))

	η2 = (12 + 10*math.Sqrt(1+(44/9.)*m/(l+5/6.))) / 22
	η1 := η2 + 0.1
	F1 := sectorFunc(η1, m, l)
	F2 := sectorFunc(η2, m, l)
	for iter < c.conf.MaxIterations {
		if F2 == F1 {
			return η2, iter, true
		}
		Δη := -F2 * (η2 - η1) / (F2 - F1)
		for η2+Δη <= ηMin {
			Δη *= 0.5
		}
		η1, F1 = η2, F2
		η2 += Δη
		F2 = sectorFunc(η2, m, l)
		iter++
		if math.Abs(Δη) < c.conf.PrecisionEta {
			return η2, iter, true
		}
	}
	return η2, iter, false
}

// sectorFunc is f(η) = 1 - η + (m/η²)·W(m/η² - l), whose root is the sector ratio.
func sectorFunc(η, m, l float64) float64 {
	const ε = 100 * 2.220446049250313e-16
	w := m/(η*η) - l
	var W float64
	switch {
	case math.Abs(w) < 0.1:
		// Series expansion around W(0) = 4/3.
		a := 4 / 3.
		W = a
		for n := 1.; math.Abs(a) >= ε; n++ {
			a *= w * (n + 2) / (n + 1.5)
			W += a
		}
	case w > 0:
		g := 2 * math.Asin(math.Sqrt(w))
		W = (2*g - math.Sin(2*g)) / math.Pow(math.Sin(g), 3)
	default:
		g := 2 * math.Asinh(math.Sqrt(-w))
		W = (math.Sinh(2*g) - 2*g) / math.Pow(math.Sinh(g), 3)
	}
	return 1 - η + (w+l)*W
}
