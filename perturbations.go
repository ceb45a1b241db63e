package od

import (
	"fmt"
	"math"
)

// Perturbations defines which secular effects drift the elements of a PerturbedOrbit.
type Perturbations struct {
	Jn        uint8                      // Zonal harmonics to account for (only J2 has a secular effect here)
	Arbitrary func(el Elements) Elements // Additional arbitrary secular rates, in units per second.
}

func (p Perturbations) isEmpty() bool {
	return p.Jn <= 1 && p.Arbitrary == nil
}

// Perturb returns the secular rate of each element in units per second, on top
// of the two body mean motion.
func (p Perturbations) Perturb(el Elements, body CelestialObject) (rates Elements) {
	if p.isEmpty() {
		return
	}
	if p.Jn > 1 {
		// Vallado, equation 9-41: first order secular J2 rates.
		a, e, i := el[SemiMajorAxis], el[Eccentricity], el[Inclination]
		n := math.Sqrt(body.GMER() / math.Pow(a, 3))
		pR := a * (1 - e*e) // semi parameter in body radii
		acc := n * body.J(2) / (pR * pR)
		cosi := math.Cos(i)
		rates[RAAN] += -1.5 * acc * cosi
		rates[ArgPerigee] += 0.75 * acc * (5*cosi*cosi - 1)
		rates[MeanAnomaly] += 0.75 * acc * math.Sqrt(1-e*e) * (3*cosi*cosi - 1)
	}
	if p.Arbitrary != nil {
		arbs := p.Arbitrary(el)
		for k := range rates {
			rates[k] += arbs[k]
		}
	}
	return
}

func (p Perturbations) String() string {
	if p.isEmpty() {
		return "two-body"
	}
	s := fmt.Sprintf("J%d", p.Jn)
	if p.Arbitrary != nil {
		s += "+arbitrary"
	}
	return s
}

// PerturbedOrbit is an orbit whose elements drift secularly from the epoch
// values before the two body position is computed.
type PerturbedOrbit struct {
	el    Elements
	epoch float64
	body  CelestialObject
	perts Perturbations
	rates Elements
}

// NewPerturbedOrbit returns a perturbed orbit around Earth.
func NewPerturbedOrbit(el Elements, epoch float64, perts Perturbations) *PerturbedOrbit {
	return &PerturbedOrbit{el, epoch, Earth, perts, perts.Perturb(el, Earth)}
}

// Elements implements the Orbit interface.
func (o PerturbedOrbit) Elements() Elements {
	return o.el
}

// Epoch implements the Orbit interface.
func (o PerturbedOrbit) Epoch() float64 {
	return o.epoch
}

// Perturbations returns the force model of this orbit.
func (o PerturbedOrbit) Perturbations() Perturbations {
	return o.perts
}

// MeanMotion returns the anomalistic mean motion, including the secular drift.
func (o PerturbedOrbit) MeanMotion() float64 {
	return math.Sqrt(o.body.GMER()/math.Pow(o.el[SemiMajorAxis], 3)) + o.rates[MeanAnomaly]
}

// With implements the Orbit interface.
func (o PerturbedOrbit) With(el Elements) Orbit {
	return &PerturbedOrbit{el, o.epoch, o.body, o.perts, o.perts.Perturb(el, o.body)}
}

// ElementsAt returns the drifted elements at the given MJD.
func (o PerturbedOrbit) ElementsAt(mjd float64) Elements {
	dt := (mjd - o.epoch) * DaySeconds
	el := o.el
	for k := range el {
		el[k] += o.rates[k] * dt
	}
	el[MeanAnomaly] = o.el[MeanAnomaly] + o.MeanMotion()*dt
	return el
}

// Position implements the Orbit interface.
func (o PerturbedOrbit) Position(mjd float64) []float64 {
	el := o.ElementsAt(mjd)
	R, _ := perifocalState(el, el[MeanAnomaly], o.body.GMER())
	return PQW2ECI(el[Inclination], el[ArgPerigee], el[RAAN], R)
}

// String implements the stringer interface.
func (o PerturbedOrbit) String() string {
	return fmt.Sprintf("%s epoch=%.6f (%s)", o.el, o.epoch, o.perts)
}
