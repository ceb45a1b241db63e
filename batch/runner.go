// Package batch determines the orbits of many objects concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	kitlog "github.com/go-kit/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
	"github.com/ralatsdc/system-communication-toolbox-sub001/internal/observability"
)

const (
	minSeedSeparation = 10 * math.Pi / 180
	maxSeedSeparation = 170 * math.Pi / 180
)

var (
	// ErrNoSeedPair is returned when no two observations are far enough apart
	// along the orbit for Gauss's method.
	ErrNoSeedPair = errors.New("batch: no observation pair suitable for a preliminary orbit")
	// ErrImplausible is returned when the preliminary orbit is rejected.
	ErrImplausible = errors.New("batch: no plausible preliminary orbit")
)

// Job is the orbit determination of a single object.
type Job struct {
	ID           string
	Observations []od.Observation
	Method       od.Method
	// Seed is the initial orbit; Gauss's method provides it when nil.
	Seed od.Orbit
}

// Outcome is the result of a Job. Err is set when the job could not reach a
// terminal status, in which case Result may still hold the last orbit.
type Outcome struct {
	ID       string
	Seed     od.Orbit
	Result   od.Result
	Duration time.Duration
	Err      error
}

// Runner fans jobs out over a bounded number of goroutines.
type Runner struct {
	Corrector *od.Corrector
	Workers   int
	Logger    kitlog.Logger
	Metrics   *observability.Collector
	Tracer    trace.Tracer
}

// Run processes all jobs and returns their outcomes in job order. A failing job
// does not stop the others; only the cancellation of ctx returns an error.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	corrector := r.Corrector
	if corrector == nil {
		var err error
		if corrector, err = od.NewCorrector(od.DefaultConfig(), r.Logger); err != nil {
			return nil, err
		}
	}
	logger := r.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "subsys", "batch")
	tracer := r.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/ralatsdc/system-communication-toolbox-sub001/batch")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	logger.Log("level", "info", "status", "starting", "jobs", len(jobs), "workers", workers)
	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			outcomes[i] = r.runJob(gctx, corrector, tracer, logger, jobs[i])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("batch interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return outcomes, fmt.Errorf("batch interrupted: %w", err)
	}
	logger.Log("level", "info", "status", "done", "jobs", len(jobs))
	return outcomes, nil
}

func (r *Runner) runJob(ctx context.Context, c *od.Corrector, tracer trace.Tracer, logger kitlog.Logger, job Job) (out Outcome) {
	out.ID = job.ID
	logger = kitlog.With(logger, "job", job.ID)
	ctx, span := tracer.Start(ctx, "od.fit", trace.WithAttributes(
		attribute.String("od.job", job.ID),
		attribute.String("od.method", methodLabel(job.Method)),
		attribute.Int("od.observations", len(job.Observations)),
	))
	start := time.Now()
	defer func() {
		out.Duration = time.Since(start)
		status := "error"
		if out.Err == nil {
			status = out.Result.Status.String()
			span.SetAttributes(attribute.Int("od.iterations", out.Result.Iterations), attribute.Float64("od.sos", out.Result.SumOfSquares))
			span.SetStatus(codes.Ok, status)
		} else {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
		r.Metrics.ObserveFit(methodLabel(job.Method), status, out.Result.Iterations, out.Duration)
		span.End()
	}()

	seed := job.Seed
	if seed == nil {
		var err error
		if seed, err = r.preliminary(c, job.Observations); err != nil {
			logger.Log("level", "warning", "status", "no seed", "err", err)
			out.Err = err
			return
		}
	}
	out.Seed = seed
	res, err := c.DifferentialCorrect(ctx, seed, job.Observations, job.Method)
	out.Result = res
	if err != nil {
		logger.Log("level", "critical", "status", "failed", "err", err)
		out.Err = err
		return
	}
	logger.Log("level", "info", "status", res.Status, "iterations", res.Iterations, "sos", res.SumOfSquares)
	return
}

// preliminary seeds a job with Gauss's method.
func (r *Runner) preliminary(c *od.Corrector, obs []od.Observation) (od.Orbit, error) {
	a, b, err := SeedPair(obs)
	if err != nil {
		r.Metrics.ObservePreliminary("error")
		return nil, err
	}
	prelim, err := c.PreliminaryOrbit(a, b)
	if err != nil {
		r.Metrics.ObservePreliminary("error")
		return nil, err
	}
	if prelim.Orbit == nil {
		r.Metrics.ObservePreliminary("rejected")
		return nil, fmt.Errorf("%w: between MJD %f and %f", ErrImplausible, a.MJD, b.MJD)
	}
	r.Metrics.ObservePreliminary("valid")
	return prelim.Orbit, nil
}

// SeedPair returns the first observation and the first later one whose
// position lies between 10 and 170 degrees away from it.
func SeedPair(obs []od.Observation) (a, b od.Observation, err error) {
	if len(obs) < 2 {
		return a, b, fmt.Errorf("%w: %d observations", ErrNoSeedPair, len(obs))
	}
	a = obs[0]
	if err = a.Validate(); err != nil {
		return a, b, err
	}
	for _, o := range obs[1:] {
		if o.MJD <= a.MJD || o.Validate() != nil {
			continue
		}
		cosθ := floats.Dot(a.R, o.R) / (floats.Norm(a.R, 2) * floats.Norm(o.R, 2))
		θ := math.Acos(math.Max(-1, math.Min(1, cosθ)))
		if θ >= minSeedSeparation && θ <= maxSeedSeparation {
			return a, o, nil
		}
	}
	return a, b, ErrNoSeedPair
}

func methodLabel(m od.Method) string {
	if !m.Valid() {
		return "unknown"
	}
	return m.String()
}
