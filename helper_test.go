package od

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !scalar.EqualWithinAbsOrRel(a[i], b[i], 1e-9, 1e-6) {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in Radians are equal.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Abs(wrapπ(a - b))
	if diff < angleε {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10f degrees", diff/deg2rad)
}

// elementsWithin reports the first element differing by more than tol (angles on the circle).
func elementsWithin(a, b Elements, tol float64) error {
	for k := SemiMajorAxis; k <= MeanAnomaly; k++ {
		diff := a[k] - b[k]
		if k >= RAAN {
			diff = wrapπ(diff)
		}
		if math.Abs(diff) > tol {
			return fmt.Errorf("%s differs by %g (%g != %g)", k, diff, a[k], b[k])
		}
	}
	return nil
}

// sampleObservations returns noiseless observations of o every step days.
func sampleObservations(o Orbit, start, step float64, count int) []Observation {
	obs := make([]Observation, count)
	for i := range obs {
		mjd := start + float64(i)*step
		obs[i] = Observation{MJD: mjd, R: o.Position(mjd)}
	}
	return obs
}

// referenceElements is a moderately eccentric, inclined orbit used throughout the tests.
var referenceElements = Elements{1.5, 0.1, 0.9, 1.2, 0.7, 0.5}

const referenceEpoch = 58000.0
