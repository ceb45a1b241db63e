package od

import (
	"context"
	"fmt"
	"io"
	"math"

	kitlog "github.com/go-kit/log"
)

// Status is the terminal state of a differential correction.
type Status uint8

const (
	// Successful means the mean anomaly settled within the time tolerance.
	Successful Status = iota + 1
	// Diverged means an iteration did not improve the sum of squares.
	Diverged
	// Exhausted means the iteration cap was reached.
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Successful:
		return "differential correction successful"
	case Diverged:
		return "differential correction diverged"
	case Exhausted:
		return "maximum iterations exceeded"
	default:
		panic(fmt.Errorf("unknown status %d", uint8(s)))
	}
}

// Result is the outcome of a differential correction.
type Result struct {
	Orbit        Orbit
	Status       Status
	Iterations   int
	SumOfSquares float64
}

func (r Result) String() string {
	return fmt.Sprintf("%s after %d iterations (sos=%.3e): %s", r.Status, r.Iterations, r.SumOfSquares, r.Orbit)
}

// Corrector determines orbits. It only holds immutable configuration and a
// logger, so one Corrector may serve concurrent determinations.
type Corrector struct {
	conf   Config
	logger kitlog.Logger
}

// NewCorrector returns a Corrector after validating the configuration. A nil
// logger discards all records.
func NewCorrector(conf Config, logger kitlog.Logger) (*Corrector, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Corrector{conf, logger}, nil
}

// NewLogger returns the logfmt logger used by the tools.
func NewLogger(w io.Writer) kitlog.Logger {
	return kitlog.With(kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w)), "ts", kitlog.DefaultTimestampUTC)
}

func defaultCorrector() *Corrector {
	return &Corrector{DefaultConfig(), kitlog.NewNopLogger()}
}

// Config returns the configuration of this corrector.
func (c *Corrector) Config() Config {
	return c.conf
}

// DifferentialCorrect refines the seed orbit against the observations with the
// default configuration. The method is "gauss-newton" or "levenberg-marquardt".
func DifferentialCorrect(seed Orbit, obs []Observation, method string) (Orbit, Status, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, 0, err
	}
	res, err := defaultCorrector().DifferentialCorrect(context.Background(), seed, obs, m)
	return res.Orbit, res.Status, err
}

// DifferentialCorrect iterates corrections of the seed orbit until the mean
// anomaly moves by less than MaxTimeDiff seconds between iterations
// (Successful, latest orbit), an iteration fails to strictly lower the sum of
// squares (Diverged, orbit before that iteration), or more than MaxIterations
// iterations are needed (Exhausted, latest orbit). The context is checked once
// per iteration; if it is done, the current orbit is returned with its error.
func (c *Corrector) DifferentialCorrect(ctx context.Context, seed Orbit, obs []Observation, method Method) (Result, error) {
	if !method.Valid() {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownMethod, uint8(method))
	}
	if k, ok := seed.(*KeplerOrbit); seed == nil || (ok && k == nil) {
		return Result{}, ErrNilOrbit
	}
	if err := validateObservations(obs); err != nil {
		return Result{}, err
	}
	logger := kitlog.With(c.logger, "subsys", "od", "method", method)
	logger.Log("level", "info", "status", "starting", "observations", len(obs), "seed", seed)

	state := c.newCorrectionState(method)
	curr := seed.With(seed.Elements())
	next, sosNext, err := c.correct(state, curr, obs)
	if err != nil {
		logger.Log("level", "critical", "status", "correction failed", "err", err)
		return Result{Orbit: curr}, err
	}
	offset := c.timeOffset(curr, next)
	sosMin := math.Inf(1)
	iter := 0
	for math.Abs(offset) > c.conf.MaxTimeDiff {
		if err := ctx.Err(); err != nil {
			return Result{curr, 0, iter, sosMin}, fmt.Errorf("differential correction interrupted: %w", err)
		}
		iter++
		if iter > c.conf.MaxIterations {
			res := Result{next, Exhausted, iter, sosNext}
			logger.Log("level", "warning", "status", res.Status, "iterations", iter, "sos", sosNext)
			return res, nil
		}
		if sosNext >= sosMin {
			res := Result{curr, Diverged, iter, sosMin}
			logger.Log("level", "warning", "status", res.Status, "iterations", iter, "sos", sosNext, "best", sosMin)
			return res, nil
		}
		sosMin = sosNext
		curr = next
		if next, sosNext, err = c.correct(state, curr, obs); err != nil {
			logger.Log("level", "critical", "status", "correction failed", "iterations", iter, "err", err)
			return Result{curr, 0, iter, sosMin}, err
		}
		offset = c.timeOffset(curr, next)
		logger.Log("level", "debug", "iteration", iter, "sos", sosNext, "offset", offset, "lambda", state.λ)
	}
	res := Result{next, Successful, iter, sosNext}
	logger.Log("level", "info", "status", res.Status, "iterations", iter, "sos", sosNext, "orbit", next)
	return res, nil
}

// correct runs one correction of o: assembly, solution and line search.
func (c *Corrector) correct(s *correctionState, o Orbit, obs []Observation) (Orbit, float64, error) {
	s.dz, s.H = assemble(o, obs, c.conf.DecimalDelta)
	if err := c.solve(s, o, obs); err != nil {
		return nil, 0, err
	}
	next, sos, _ := c.lineSearch(o, s.dx, obs)
	return next, sos, nil
}

// timeOffset returns how many seconds of motion the change of mean anomaly
// between both orbits amounts to.
func (c *Corrector) timeOffset(curr, next Orbit) float64 {
	ΔM := wrapπ(next.Elements()[MeanAnomaly] - curr.Elements()[MeanAnomaly])
	return ΔM / curr.MeanMotion()
}
