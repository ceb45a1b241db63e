package batch

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
	"github.com/ralatsdc/system-communication-toolbox-sub001/internal/observability"
	"github.com/ralatsdc/system-communication-toolbox-sub001/tle"
)

const epoch = 58000.0

var reference = od.Elements{1.5, 0.1, 0.9, 1.2, 0.7, 0.5}

func sample(o od.Orbit, step float64, count int) []od.Observation {
	obs := make([]od.Observation, count)
	for i := range obs {
		mjd := epoch + float64(i)*step
		obs[i] = od.Observation{MJD: mjd, R: o.Position(mjd)}
	}
	return obs
}

func TestSeedPair(t *testing.T) {
	truth := od.NewKeplerOrbit(reference, epoch)
	// About 33 degrees of mean anomaly between consecutive observations.
	obs := sample(truth, 0.01, 5)
	a, b, err := SeedPair(obs)
	if err != nil {
		t.Fatal(err)
	}
	if a.MJD != obs[0].MJD || b.MJD != obs[1].MJD {
		t.Fatalf("unexpected pair %f %f", a.MJD, b.MJD)
	}
	// Too close together until the fourth observation.
	obs = append(sample(truth, 0.0001, 3), obs[2:]...)
	if _, b, err = SeedPair(obs); err != nil || b.MJD != obs[3].MJD {
		t.Fatalf("expected the fourth observation, got %f (%v)", b.MJD, err)
	}
	if _, _, err = SeedPair(sample(truth, 0.0001, 10)); !errors.Is(err, ErrNoSeedPair) {
		t.Fatalf("expected ErrNoSeedPair, got %v", err)
	}
	if _, _, err = SeedPair(obs[:1]); !errors.Is(err, ErrNoSeedPair) {
		t.Fatalf("expected ErrNoSeedPair, got %v", err)
	}
}

func TestRunner(t *testing.T) {
	truth := od.NewKeplerOrbit(reference, epoch)
	low := od.NewKeplerOrbit(od.Elements{1.05, 0.1, 0.9, 1.2, 0.7, 0.5}, epoch)
	jobs := []Job{
		{ID: "ref-gn", Observations: sample(truth, 0.01, 10), Method: od.GaussNewton},
		{ID: "ref-lm", Observations: sample(truth, 0.01, 10), Method: od.LevenbergMarquardt, Seed: truth},
		{ID: "single", Observations: sample(truth, 0.01, 1), Method: od.GaussNewton},
		{ID: "close", Observations: sample(truth, 0.0001, 10), Method: od.GaussNewton},
		{ID: "subterranean", Observations: sample(low, 0.005, 10), Method: od.GaussNewton},
		{ID: "unknown", Observations: sample(truth, 0.01, 10), Method: od.Method(42), Seed: truth},
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	var buf bytes.Buffer
	r := Runner{Workers: 3, Logger: od.NewLogger(&buf), Metrics: metrics, Tracer: tp.Tracer("test")}

	outcomes, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != len(jobs) {
		t.Fatalf("got %d outcomes for %d jobs", len(outcomes), len(jobs))
	}
	for i, out := range outcomes {
		if out.ID != jobs[i].ID {
			t.Fatalf("outcome #%d is %s, want %s", i, out.ID, jobs[i].ID)
		}
	}
	for _, out := range outcomes[:2] {
		if out.Err != nil {
			t.Fatalf("%s: %s", out.ID, out.Err)
		}
		if out.Result.Status != od.Successful {
			t.Fatalf("%s: %s", out.ID, out.Result)
		}
		got := out.Result.Orbit.Elements()
		for k := od.SemiMajorAxis; k <= od.MeanAnomaly; k++ {
			if math.Abs(math.Remainder(got[k]-reference[k], 2*math.Pi)) > 1e-6 {
				t.Fatalf("%s: %s is %f, want %f", out.ID, k, got[k], reference[k])
			}
		}
		if out.Seed == nil {
			t.Fatalf("%s: seed not recorded", out.ID)
		}
	}
	for id, want := range map[int]error{2: ErrNoSeedPair, 3: ErrNoSeedPair, 4: ErrImplausible, 5: od.ErrUnknownMethod} {
		if !errors.Is(outcomes[id].Err, want) {
			t.Fatalf("%s: expected %v, got %v", outcomes[id].ID, want, outcomes[id].Err)
		}
	}

	for _, tc := range []struct {
		method, status string
		want           float64
	}{
		{"gauss-newton", od.Successful.String(), 1},
		{"levenberg-marquardt", od.Successful.String(), 1},
		{"gauss-newton", "error", 3},
		{"unknown", "error", 1},
	} {
		if got := testutil.ToFloat64(metrics.Fits.WithLabelValues(tc.method, tc.status)); got != tc.want {
			t.Fatalf("od_fits_total{%s,%s} = %v, want %v", tc.method, tc.status, got, tc.want)
		}
	}
	for outcome, want := range map[string]float64{"valid": 1, "rejected": 1, "error": 2} {
		if got := testutil.ToFloat64(metrics.Preliminaries.WithLabelValues(outcome)); got != want {
			t.Fatalf("od_preliminary_total{%s} = %v, want %v", outcome, got, want)
		}
	}

	spans := sr.Ended()
	if len(spans) != len(jobs) {
		t.Fatalf("got %d spans for %d jobs", len(spans), len(jobs))
	}
	failed := 0
	for _, s := range spans {
		if s.Name() != "od.fit" {
			t.Fatalf("unexpected span %s", s.Name())
		}
		if s.Status().Code == codes.Error {
			failed++
		}
	}
	if failed != 4 {
		t.Fatalf("%d failed spans, want 4", failed)
	}
	if !strings.Contains(buf.String(), "job=subterranean") {
		t.Fatalf("missing job log records:\n%s", buf.String())
	}
}

func TestRunnerCancelled(t *testing.T) {
	truth := od.NewKeplerOrbit(reference, epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Runner{Workers: 1}
	_, err := r.Run(ctx, []Job{{ID: "a", Observations: sample(truth, 0.01, 10), Method: od.GaussNewton}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRunnerTLE(t *testing.T) {
	src, err := tle.NewSource(
		"1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927",
		"2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537",
		tle.WithName("ISS"),
	)
	if err != nil {
		t.Fatal(err)
	}
	obs, err := src.Sample(time.Date(2008, 9, 20, 12, 25, 40, 0, time.UTC), 5*time.Minute, 19)
	if err != nil {
		t.Fatal(err)
	}
	r := Runner{Workers: 2}
	outcomes, err := r.Run(context.Background(), []Job{
		{ID: "iss-gn", Observations: obs, Method: od.GaussNewton},
		{ID: "iss-lm", Observations: obs, Method: od.LevenbergMarquardt},
	})
	if err != nil {
		t.Fatal(err)
	}
	// 15.72 revolutions per day.
	n := 15.72125391563537 * 2 * math.Pi / od.DaySeconds
	a := math.Cbrt(od.Earth.GM()/(n*n)) / od.Earth.Radius
	for _, out := range outcomes {
		if out.Err != nil {
			t.Fatalf("%s: %s", out.ID, out.Err)
		}
		if got := out.Result.Orbit.Elements()[od.SemiMajorAxis]; math.Abs(got-a)/a > 0.01 {
			t.Fatalf("%s: a=%f ER, want about %f ER", out.ID, got, a)
		}
		if got := out.Result.Orbit.Elements()[od.Inclination]; math.Abs(od.Rad2deg(got)-51.6416) > 0.5 {
			t.Fatalf("%s: i=%f deg", out.ID, od.Rad2deg(got))
		}
	}
}
