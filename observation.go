package od

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Observation is a geocentric position (body radii) at a Modified Julian Date.
type Observation struct {
	MJD float64
	R   []float64
}

// Validate returns an error if the observation cannot be used numerically.
func (o Observation) Validate() error {
	if len(o.R) != 3 {
		return fmt.Errorf("%w: got %d components at MJD %f", ErrVectorDim, len(o.R), o.MJD)
	}
	if math.IsNaN(o.MJD) || math.IsInf(o.MJD, 0) {
		return fmt.Errorf("%w: epoch %f", ErrNonFinite, o.MJD)
	}
	for _, v := range o.R {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: position %v at MJD %f", ErrNonFinite, o.R, o.MJD)
		}
	}
	return nil
}

// NewObservations zips the provided epochs and positions into observations.
func NewObservations(times []float64, positions [][]float64) ([]Observation, error) {
	if len(times) != len(positions) {
		return nil, fmt.Errorf("%w: %d epochs and %d positions", ErrLengthMismatch, len(times), len(positions))
	}
	obs := make([]Observation, len(times))
	for i, mjd := range times {
		obs[i] = Observation{MJD: mjd, R: positions[i]}
		if err := obs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

// SortObservations orders the observations by epoch, in place.
func SortObservations(obs []Observation) {
	slices.SortStableFunc(obs, func(a, b Observation) int {
		switch {
		case a.MJD < b.MJD:
			return -1
		case a.MJD > b.MJD:
			return 1
		}
		return 0
	})
}

// validateObservations checks a series before any numerical work.
func validateObservations(obs []Observation) error {
	if len(obs) == 0 {
		return fmt.Errorf("%w: need at least one", ErrObservationCount)
	}
	for i, o := range obs {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
		if i > 0 && o.MJD < obs[i-1].MJD {
			return fmt.Errorf("%w: observation %d at %f precedes %f", ErrObservationOrder, i, o.MJD, obs[i-1].MJD)
		}
	}
	return nil
}
