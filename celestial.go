package od

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DaySeconds is the number of SI seconds in one day.
	DaySeconds = 86400.0
)

// CelestialObject defines the central body the orbits are determined around.
type CelestialObject struct {
	Name   string
	Radius float64 // km
	μ      float64 // km^3/s^2
	J2     float64
	J3     float64
	J4     float64
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// GMER returns μ expressed in body radii cubed per second squared, i.e. the
// square of the mean motion of a circular orbit of one body radius.
func (c CelestialObject) GMER() float64 {
	return c.μ / math.Pow(c.Radius, 3)
}

// J returns the perturbing J_n factor for the provided n.
func (c CelestialObject) J(n uint8) float64 {
	switch n {
	case 2:
		return c.J2
	case 3:
		return c.J3
	case 4:
		return c.J4
	default:
		return 0.0
	}
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.μ == b.μ && c.J2 == b.J2
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	default:
		return CelestialObject{}, fmt.Errorf("undefined central body '%s'", name)
	}
}

// Earth is home.
var Earth = CelestialObject{"Earth", 6378.1363, 3.98600433e5, 1082.6269e-6, -2.5324e-6, -1.6204e-6}
