package od

import "errors"

// Input contract violations and hard numerical failures. Expected numerical
// outcomes (no plausible preliminary orbit, divergence, iteration cap) are
// reported as values instead.
var (
	// ErrVectorDim indicates a position vector which is not 3x1.
	ErrVectorDim = errors.New("od: position vector must be 3x1")

	// ErrNonFinite indicates a NaN or infinite time or position component.
	ErrNonFinite = errors.New("od: non finite value")

	// ErrLengthMismatch indicates time and position arrays of different lengths.
	ErrLengthMismatch = errors.New("od: times and positions have different lengths")

	// ErrObservationCount indicates too few observations for the requested operation.
	ErrObservationCount = errors.New("od: not enough observations")

	// ErrObservationOrder indicates observations which are not sorted by time.
	ErrObservationOrder = errors.New("od: observations are not time ordered")

	// ErrTimeSpan indicates two observations at the same epoch.
	ErrTimeSpan = errors.New("od: observations must be at distinct epochs")

	// ErrCollinear indicates two position vectors which do not define an orbital plane.
	ErrCollinear = errors.New("od: position vectors are collinear")

	// ErrNilOrbit indicates a missing seed orbit.
	ErrNilOrbit = errors.New("od: nil seed orbit")

	// ErrUnknownMethod indicates an unsupported correction method name.
	ErrUnknownMethod = errors.New("od: unknown correction method")

	// ErrSingular indicates a normal equation system which cannot be solved.
	ErrSingular = errors.New("od: singular normal equations")
)
