package od

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestCelestialObject(t *testing.T) {
	var i uint8
	for i = 1; i < 6; i++ {
		switch {
		case i == 2 && Earth.J(i) != Earth.J2:
			t.Fatalf("J2 not returned for %s", Earth)
		case i == 3 && Earth.J(i) != Earth.J3:
			t.Fatalf("J3 not returned for %s", Earth)
		case i == 4 && Earth.J(i) != Earth.J4:
			t.Fatalf("J4 not returned for %s", Earth)
		case (i < 2 || i > 4) && Earth.J(i) != 0:
			t.Fatalf("J(%d) = %f != 0 for %s", i, Earth.J(i), Earth)
		}
	}
	// One Earth radius circular orbit lasts about 84.5 minutes.
	period := 2 * math.Pi / math.Sqrt(Earth.GMER())
	if !scalar.EqualWithinAbs(period/60, 84.49, 0.01) {
		t.Fatalf("unexpected period of %f minutes", period/60)
	}
}

func TestCelestialObjectFromString(t *testing.T) {
	c, err := CelestialObjectFromString("EARTH")
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equals(Earth) {
		t.Fatal("expected Earth")
	}
	if _, err := CelestialObjectFromString("Vesta"); err == nil {
		t.Fatal("expected an error for an unknown body")
	}
}
