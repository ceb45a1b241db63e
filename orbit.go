package od

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 1e-3                         // about 6 km in Earth radii
	keplerε       = 1e-15
	keplerMaxIter = 50
)

// Element identifies one of the six classical orbital elements.
type Element uint8

const (
	// SemiMajorAxis in body radii.
	SemiMajorAxis Element = iota
	// Eccentricity is dimensionless.
	Eccentricity
	// Inclination in radians.
	Inclination
	// RAAN is the right ascension of the ascending node in radians.
	RAAN
	// ArgPerigee is the argument of perigee in radians.
	ArgPerigee
	// MeanAnomaly at epoch in radians.
	MeanAnomaly
)

func (e Element) String() string {
	switch e {
	case SemiMajorAxis:
		return "a"
	case Eccentricity:
		return "e"
	case Inclination:
		return "i"
	case RAAN:
		return "Ω"
	case ArgPerigee:
		return "ω"
	case MeanAnomaly:
		return "M"
	default:
		panic(fmt.Errorf("unknown element %d", uint8(e)))
	}
}

// Elements stores a, e, i, Ω, ω, M in that order.
type Elements [6]float64

func (el Elements) String() string {
	return fmt.Sprintf("a=%.6f e=%.6f i=%.4f Ω=%.4f ω=%.4f M=%.4f", el[SemiMajorAxis], el[Eccentricity],
		Rad2deg(el[Inclination]), Rad2deg(el[RAAN]), Rad2deg(el[ArgPerigee]), Rad2deg(el[MeanAnomaly]))
}

// Orbit is anything which places an object at a geocentric position from six
// classical elements at an epoch. Orbits are immutable: With returns a sibling
// of the same kind (same epoch, same force model) with other elements.
type Orbit interface {
	// Position returns the geocentric position in body radii at the given MJD.
	Position(mjd float64) []float64
	Elements() Elements
	// Epoch returns the MJD at which the elements are osculating.
	Epoch() float64
	// MeanMotion returns the rate of the mean anomaly in radians per second.
	MeanMotion() float64
	With(el Elements) Orbit
	String() string
}

// WithElement returns a sibling of o where only element k is replaced by v.
func WithElement(o Orbit, k Element, v float64) Orbit {
	el := o.Elements()
	el[k] = v
	return o.With(el)
}

// KeplerOrbit is a closed form two body orbit.
type KeplerOrbit struct {
	el    Elements
	epoch float64
	body  CelestialObject
}

// NewKeplerOrbit returns a two body orbit around Earth. Angles are in radians and
// the semi major axis is in Earth radii.
func NewKeplerOrbit(el Elements, epoch float64) *KeplerOrbit {
	return &KeplerOrbit{el, epoch, Earth}
}

// NewKeplerOrbitAround returns a two body orbit around the provided body.
func NewKeplerOrbitAround(el Elements, epoch float64, body CelestialObject) *KeplerOrbit {
	return &KeplerOrbit{el, epoch, body}
}

// Elements returns a copy of the elements.
func (o KeplerOrbit) Elements() Elements {
	return o.el
}

// Epoch implements the Orbit interface.
func (o KeplerOrbit) Epoch() float64 {
	return o.epoch
}

// Body returns the central body.
func (o KeplerOrbit) Body() CelestialObject {
	return o.body
}

// MeanMotion implements the Orbit interface.
func (o KeplerOrbit) MeanMotion() float64 {
	return math.Sqrt(o.body.GMER() / math.Pow(o.el[SemiMajorAxis], 3))
}

// With implements the Orbit interface.
func (o KeplerOrbit) With(el Elements) Orbit {
	return &KeplerOrbit{el, o.epoch, o.body}
}

// Position implements the Orbit interface.
func (o KeplerOrbit) Position(mjd float64) []float64 {
	M := o.el[MeanAnomaly] + o.MeanMotion()*(mjd-o.epoch)*DaySeconds
	R, _ := perifocalState(o.el, M, o.body.GMER())
	return PQW2ECI(o.el[Inclination], o.el[ArgPerigee], o.el[RAAN], R)
}

// State returns the position and velocity in body radii and body radii per second.
func (o KeplerOrbit) State(mjd float64) (R, V []float64) {
	M := o.el[MeanAnomaly] + o.MeanMotion()*(mjd-o.epoch)*DaySeconds
	R, V = perifocalState(o.el, M, o.body.GMER())
	i, ω, Ω := o.el[Inclination], o.el[ArgPerigee], o.el[RAAN]
	return PQW2ECI(i, ω, Ω, R), PQW2ECI(i, ω, Ω, V)
}

// SemiParameter returns the semi latus rectum.
func (o KeplerOrbit) SemiParameter() float64 {
	return o.el[SemiMajorAxis] * (1 - o.el[Eccentricity]*o.el[Eccentricity])
}

// Apoapsis returns the apoapsis radius.
func (o KeplerOrbit) Apoapsis() float64 {
	return o.el[SemiMajorAxis] * (1 + o.el[Eccentricity])
}

// Periapsis returns the periapsis radius.
func (o KeplerOrbit) Periapsis() float64 {
	return o.el[SemiMajorAxis] * (1 - o.el[Eccentricity])
}

// Period returns the period of this orbit.
func (o KeplerOrbit) Period() time.Duration {
	return time.Duration(2 * math.Pi / o.MeanMotion() * float64(time.Second))
}

// String implements the stringer interface (hence the value receiver)
func (o KeplerOrbit) String() string {
	return fmt.Sprintf("%s epoch=%.6f", o.el, o.epoch)
}

// Equals returns whether two orbits are identical with free mean anomaly.
// Use StrictlyEquals to also check the mean anomaly.
func (o KeplerOrbit) Equals(o1 Orbit) (bool, error) {
	el1 := o1.Elements()
	if !scalar.EqualWithinAbs(o.el[SemiMajorAxis], el1[SemiMajorAxis], distanceε) {
		return false, errors.New("semi major axis invalid")
	}
	if !scalar.EqualWithinAbs(o.el[Eccentricity], el1[Eccentricity], eccentricityε) {
		return false, errors.New("eccentricity invalid")
	}
	if !scalar.EqualWithinAbs(o.el[Inclination], el1[Inclination], angleε) {
		return false, errors.New("inclination invalid")
	}
	if !angleWithin(o.el[RAAN], el1[RAAN], angleε) {
		return false, errors.New("RAAN invalid")
	}
	if o.el[Eccentricity] > eccentricityε && !angleWithin(o.el[ArgPerigee], el1[ArgPerigee], angleε) {
		return false, errors.New("argument of perigee invalid")
	}
	return true, nil
}

// StrictlyEquals returns whether two orbits are identical, at the same epoch.
func (o KeplerOrbit) StrictlyEquals(o1 Orbit) (bool, error) {
	if !scalar.EqualWithinAbs(o.epoch, o1.Epoch(), 1e-9) {
		return false, errors.New("epoch invalid")
	}
	if o.el[Eccentricity] > eccentricityε && !angleWithin(o.el[MeanAnomaly], o1.Elements()[MeanAnomaly], angleε) {
		return false, errors.New("mean anomaly invalid")
	}
	return o.Equals(o1)
}

// NewOrbitFromRV returns the orbit of the provided position (km) and velocity
// (km/s) at the given epoch.
func NewOrbitFromRV(R, V []float64, epoch float64, c CelestialObject) *KeplerOrbit {
	// From Vallado's RV2COE, page 113, with atan2 quadrant resolution.
	hVec := cross(R, V)
	hUnit := unit(hVec)
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - c.μ/r
	a := -c.μ / (2 * ξ)
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-c.μ/r)*R[i] - dot(R, V)*V[i]) / c.μ
	}
	e := norm(eVec)
	i := math.Acos(clamp(hUnit[2], -1, 1))
	var Ω, ω float64
	if norm(n) > 1e-12*norm(hVec) {
		nUnit := unit(n)
		Ω = math.Atan2(n[1], n[0])
		if e > 1e-12 {
			ω = math.Atan2(dot(cross(nUnit, eVec), hUnit), dot(nUnit, eVec))
		}
	} else if e > 1e-12 {
		// Equatorial: the periapsis is measured from the vernal equinox.
		ω = math.Atan2(eVec[1], eVec[0]) * sign(hVec[2])
	}
	var ν float64
	if e > 1e-12 {
		ν = math.Atan2(dot(cross(eVec, R), hUnit), dot(eVec, R))
	} else {
		// Circular: the true anomaly is measured from the node.
		ref := []float64{math.Cos(Ω), math.Sin(Ω), 0}
		ν = math.Atan2(dot(cross(ref, R), hUnit), dot(ref, R))
	}
	E := math.Atan2(math.Sqrt(1-e*e)*math.Sin(ν), e+math.Cos(ν))
	M := E - e*math.Sin(E)
	el := Elements{a / c.Radius, e, i, wrap2π(Ω), wrap2π(ω), wrap2π(M)}
	return &KeplerOrbit{el, epoch, c}
}

// eccentricAnomaly solves Kepler's equation M = E - e sin E by Newton's method.
func eccentricAnomaly(M, e float64) float64 {
	M = wrapπ(M)
	E := M
	if e > 0.8 {
		E = math.Pi * sign(M)
	}
	for iter := 0; iter < keplerMaxIter; iter++ {
		sE, cE := math.Sincos(E)
		δ := (E - e*sE - M) / (1 - e*cE)
		E -= δ
		if math.Abs(δ) < keplerε {
			break
		}
	}
	return E
}

// perifocalState returns the perifocal position and velocity at mean anomaly M.
func perifocalState(el Elements, M, gm float64) (R, V []float64) {
	a, e := el[SemiMajorAxis], el[Eccentricity]
	E := eccentricAnomaly(M, e)
	sE, cE := math.Sincos(E)
	sqrt1me2 := math.Sqrt(1 - e*e)
	R = []float64{a * (cE - e), a * sqrt1me2 * sE, 0}
	r := a * (1 - e*cE)
	vFact := math.Sqrt(gm*a) / r
	V = []float64{-vFact * sE, vFact * sqrt1me2 * cE, 0}
	return
}

// angleWithin returns whether two angles are within tol of each other on the circle.
func angleWithin(a, b, tol float64) bool {
	return math.Abs(wrapπ(a-b)) < tol
}
