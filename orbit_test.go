package od

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestOrbitRV2COE(t *testing.T) {
	// From Vallado, example 2-5.
	R := []float64{6524.834, 6862.875, 6448.296}
	V := []float64{4.901327, 5.533756, -1.976341}
	o := NewOrbitFromRV(R, V, referenceEpoch, Earth)
	el := o.Elements()
	if !scalar.EqualWithinAbs(el[SemiMajorAxis]*Earth.Radius, 36127.343, 1e-2) {
		t.Fatalf("incorrect a=%f km", el[SemiMajorAxis]*Earth.Radius)
	}
	if !scalar.EqualWithinAbs(el[Eccentricity], 0.832853, 1e-6) {
		t.Fatalf("incorrect e=%f", el[Eccentricity])
	}
	for _, check := range []struct {
		k   Element
		deg float64
	}{{Inclination, 87.869126}, {RAAN, 227.898260}, {ArgPerigee, 53.384931}} {
		if ok, err := anglesEqual(el[check.k], Deg2rad(check.deg)); !ok {
			t.Fatalf("%s invalid: %s", check.k, err)
		}
	}
	// Converting back must yield the same state vectors.
	Rer, Ver := o.State(referenceEpoch)
	for i := 0; i < 3; i++ {
		Rer[i] *= Earth.Radius
		Ver[i] *= Earth.Radius
	}
	if !vectorsEqual(R, Rer) {
		t.Fatalf("R vector incorrectly computed:\n%+v\n%+v", R, Rer)
	}
	if !vectorsEqual(V, Ver) {
		t.Fatalf("V vector incorrectly computed:\n%+v\n%+v", V, Ver)
	}
}

func TestOrbitRVRoundTrip(t *testing.T) {
	o := NewKeplerOrbit(referenceElements, referenceEpoch)
	for _, dt := range []float64{0, 0.013, 0.2, 1.7} {
		R, V := o.State(referenceEpoch + dt)
		for i := 0; i < 3; i++ {
			R[i] *= Earth.Radius
			V[i] *= Earth.Radius
		}
		o1 := NewOrbitFromRV(R, V, referenceEpoch+dt, Earth)
		if ok, err := o.Equals(o1); !ok {
			t.Fatalf("dt=%f: %s\n%s\n%s", dt, err, o, o1)
		}
		if !vectorsEqual(o.Position(referenceEpoch+dt), o1.Position(referenceEpoch+dt)) {
			t.Fatalf("dt=%f: positions differ", dt)
		}
	}
}

func TestKeplerEquation(t *testing.T) {
	for _, e := range []float64{0, 1e-6, 0.1, 0.5, 0.9, 0.99} {
		for M := -3.0; M <= 3.0; M += 0.25 {
			E := eccentricAnomaly(M, e)
			if !scalar.EqualWithinAbs(E-e*math.Sin(E), M, 1e-12) {
				t.Fatalf("e=%f M=%f: E=%f does not solve Kepler's equation", e, M, E)
			}
		}
	}
}

func TestOrbitPeriodicity(t *testing.T) {
	o := NewKeplerOrbit(referenceElements, referenceEpoch)
	period := 2 * math.Pi / o.MeanMotion() / DaySeconds
	if !vectorsEqual(o.Position(referenceEpoch), o.Position(referenceEpoch+period)) {
		t.Fatal("position not periodic")
	}
	if !scalar.EqualWithinRel(o.Period().Seconds(), period*DaySeconds, 1e-9) {
		t.Fatalf("incorrect period %s", o.Period())
	}
	r := norm(o.Position(referenceEpoch + 0.3))
	if r < o.Periapsis()-1e-12 || r > o.Apoapsis()+1e-12 {
		t.Fatalf("radius %f outside [%f, %f]", r, o.Periapsis(), o.Apoapsis())
	}
	if !scalar.EqualWithinAbs(o.SemiParameter(), 1.5*(1-0.01), 1e-15) {
		t.Fatal("incorrect semi parameter")
	}
}

func TestWithElement(t *testing.T) {
	o := NewKeplerOrbit(referenceElements, referenceEpoch)
	o1 := WithElement(o, Inclination, 0.3)
	if o.Elements() != referenceElements {
		t.Fatal("WithElement mutated the original orbit")
	}
	if o1.Elements()[Inclination] != 0.3 || o1.Epoch() != o.Epoch() {
		t.Fatalf("incorrect sibling %s", o1)
	}
	if _, ok := o1.(*KeplerOrbit); !ok {
		t.Fatalf("sibling of a different kind: %T", o1)
	}
	if ok, _ := o.Equals(o1); ok {
		t.Fatal("orbits with different inclinations must differ")
	}
	assertPanic(t, func() {
		_ = Element(6).String()
	})
}
