// Package tle generates position observations from two-line element sets
// propagated with SGP4.
package tle

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
)

const lineLength = 69

var (
	// ErrMalformed is returned for element sets which cannot be parsed.
	ErrMalformed = errors.New("tle: malformed element set")
	// ErrPropagation is returned when SGP4 yields no usable position.
	ErrPropagation = errors.New("tle: propagation failed")
)

// Source observes a single satellite.
type Source struct {
	Name    string
	sat     satellite.Satellite
	gravity satellite.Gravity
	body    od.CelestialObject
	noise   *distmv.Normal
}

// Option configures a Source.
type Option func(*Source) error

// WithGravity selects the SGP4 gravity model; WGS72 is the default.
func WithGravity(g satellite.Gravity) Option {
	return func(s *Source) error {
		s.gravity = g
		return nil
	}
}

// WithName names the source, which shows in the logs of the tools.
func WithName(name string) Option {
	return func(s *Source) error {
		s.Name = name
		return nil
	}
}

// WithNoise adds zero mean Gaussian noise of standard deviation σ (km) on each
// position component. The same seed yields the same noise sequence.
func WithNoise(σ float64, seed uint64) Option {
	return func(s *Source) error {
		if σ < 0 || math.IsNaN(σ) {
			return fmt.Errorf("tle: invalid noise σ=%f", σ)
		}
		if σ == 0 {
			s.noise = nil
			return nil
		}
		σER := σ / s.body.Radius
		cov := mat.NewSymDense(3, []float64{σER * σER, 0, 0, 0, σER * σER, 0, 0, 0, σER * σER})
		noise, ok := distmv.NewNormal(make([]float64, 3), cov, rand.NewSource(seed))
		if !ok {
			return fmt.Errorf("tle: noise covariance is not positive definite")
		}
		s.noise = noise
		return nil
	}
}

// NewSource parses the element set. Options are applied in order.
func NewSource(line1, line2 string, opts ...Option) (*Source, error) {
	line1 = strings.TrimRight(line1, " \r\n")
	line2 = strings.TrimRight(line2, " \r\n")
	if err := checkLine(line1, '1'); err != nil {
		return nil, err
	}
	if err := checkLine(line2, '2'); err != nil {
		return nil, err
	}
	if strings.TrimSpace(line1[2:7]) != strings.TrimSpace(line2[2:7]) {
		return nil, fmt.Errorf("%w: catalog numbers %q and %q differ", ErrMalformed, line1[2:7], line2[2:7])
	}
	s := &Source{Name: strings.TrimSpace(line1[2:7]), gravity: satellite.GravityWGS72, body: od.Earth}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.sat = satellite.TLEToSat(line1, line2, s.gravity)
	return s, nil
}

// checkLine verifies the layout and the modulo 10 checksum of one line.
func checkLine(line string, number byte) error {
	if len(line) != lineLength {
		return fmt.Errorf("%w: line %c has %d characters", ErrMalformed, number, len(line))
	}
	if line[0] != number || line[1] != ' ' {
		return fmt.Errorf("%w: line %c does not start with its number", ErrMalformed, number)
	}
	sum := 0
	for _, c := range line[:lineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	if want := int(line[lineLength-1] - '0'); want != sum%10 {
		return fmt.Errorf("%w: line %c checksum is %d, computed %d", ErrMalformed, number, want, sum%10)
	}
	return nil
}

// Observe returns the position at the provided time, truncated to the second.
func (s *Source) Observe(t time.Time) (od.Observation, error) {
	t = t.UTC().Truncate(time.Second)
	pos, _ := satellite.Propagate(s.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return od.Observation{}, fmt.Errorf("%w: %s at %s", ErrPropagation, s.Name, t.Format(time.RFC3339))
	}
	R := []float64{pos.X / s.body.Radius, pos.Y / s.body.Radius, pos.Z / s.body.Radius}
	if s.noise != nil {
		ε := s.noise.Rand(nil)
		for i := range R {
			R[i] += ε[i]
		}
	}
	return od.Observation{MJD: od.TimeToMJD(t), R: R}, nil
}

// Sample observes count positions separated by step, starting at start.
func (s *Source) Sample(start time.Time, step time.Duration, count int) ([]od.Observation, error) {
	if count < 1 {
		return nil, fmt.Errorf("tle: cannot sample %d observations", count)
	}
	if step < time.Second && count > 1 {
		return nil, fmt.Errorf("tle: step %s is below one second", step)
	}
	obs := make([]od.Observation, count)
	for i := range obs {
		o, err := s.Observe(start.Add(time.Duration(i) * step))
		if err != nil {
			return nil, err
		}
		obs[i] = o
	}
	return obs, nil
}

// String implements the Stringer interface.
func (s *Source) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.gravity)
}
