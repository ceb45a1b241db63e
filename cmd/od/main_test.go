package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kitlog "github.com/go-kit/log"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
)

const (
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLoadObservations(t *testing.T) {
	input := `mjd,x,y,z
# comment
58000.02,1.0,0.2,0.3
"58000.01",1.1,0.1,0.2
58000.03,1.0,abc,0.3
58000.04,1.0,0.2
2017-09-04 00:43:12,0.9,0.4,0.3
58000.05,NaN,0.4,0.3
`
	var logs bytes.Buffer
	obs, err := loadObservations(strings.NewReader(input), kitlog.NewLogfmtLogger(&logs))
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d: %v", len(obs), obs)
	}
	if obs[0].MJD != 58000.01 || obs[1].MJD != 58000.02 {
		t.Fatalf("observations not sorted: %v", obs)
	}
	// 2017-09-04 is MJD 58000.
	if d := obs[2].MJD - 58000.03; d < -1e-8 || d > 1e-8 {
		t.Fatalf("date epoch parsed as %f", obs[2].MJD)
	}
	if n := strings.Count(logs.String(), "level=warning"); n != 3 {
		t.Fatalf("expected 3 warnings, got %d:\n%s", n, logs.String())
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := kitlog.With(levelFilter{next: kitlog.NewLogfmtLogger(&buf), min: levelRank["warning"]}, "subsys", "test")
	logger.Log("level", "debug", "msg", "dropped")
	logger.Log("level", "info", "msg", "dropped")
	logger.Log("level", "notice", "msg", "dropped")
	logger.Log("level", "warning", "msg", "kept")
	logger.Log("level", "critical", "msg", "kept")
	logger.Log("msg", "kept")
	if strings.Contains(buf.String(), "dropped") || strings.Count(buf.String(), "kept") != 3 {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	logger = levelFilter{next: kitlog.NewLogfmtLogger(&buf), min: levelRank["info"]}
	logger.Log("level", "notice", "msg", "kept")
	logger.Log("level", "debug", "msg", "dropped")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "level=notice") {
		t.Fatalf("unexpected output at info:\n%s", buf.String())
	}
	if _, _, err := execute(t, "--log-level", "verbose", "prelim", "--t1", "0", "--r1", "1,0,0", "--t2", "1", "--r2", "0,1,0"); err == nil {
		t.Fatal("unknown log level should fail")
	}
}

func TestPrelimCommand(t *testing.T) {
	truth := od.NewKeplerOrbit(od.Elements{1.5, 0.1, 0.9, 1.2, 0.7, 0.5}, 58000)
	rA, rB := truth.Position(58000), truth.Position(58000.01)
	vec := func(r []float64) string { return fmt.Sprintf("%.15f,%.15f,%.15f", r[0], r[1], r[2]) }
	stdout, _, err := execute(t, "prelim", "--t1", "58000", "--r1", vec(rA), "--t2", "58000.01", "--r2", vec(rB), "--lambert")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"sector ratio", "converged=true", "gauss\t", "lambert\t"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("missing %q in:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "no plausible orbit") {
		t.Fatalf("orbit should be plausible:\n%s", stdout)
	}

	// Eighteen thousand kilometers in a minute is a hyperbolic fly by.
	stdout, _, err = execute(t, "prelim", "--t1", "58000", "--r1", "2,0,0", "--t2", "58000.000694444444", "--r2", "0,2,0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "no plausible orbit") {
		t.Fatalf("expected no orbit:\n%s", stdout)
	}

	if _, _, err = execute(t, "prelim", "--t1", "58000", "--r1", "1,0", "--t2", "58000.01", "--r2", "0,1,0"); err == nil {
		t.Fatal("two component position should fail")
	}
}

func TestObserveAndFit(t *testing.T) {
	dir := t.TempDir()
	obsFile := filepath.Join(dir, "iss.csv")
	_, _, err := execute(t, "observe", "--line1", issLine1, "--line2", issLine2,
		"--start", "2008-09-20 12:25:40", "--step", "5m", "--count", "19", "-o", obsFile)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(obsFile)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 20 {
		t.Fatalf("expected a header and 19 lines, got %d", lines)
	}

	stdout, stderr, err := execute(t, "--log-level", "warning", "fit", "--method", "gn", obsFile)
	if err != nil {
		t.Fatalf("%s\n%s", err, stderr)
	}
	if !strings.HasPrefix(stdout, "iss\tdifferential correction") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
	if strings.Contains(stderr, "level=info") || strings.Contains(stderr, "level=debug") {
		t.Fatalf("log level not honored:\n%s", stderr)
	}

	if _, _, err = execute(t, "fit", filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("missing file should fail")
	}
	if _, _, err = execute(t, "fit", "--method", "newton", obsFile); err == nil {
		t.Fatal("unknown method should fail")
	}
}

func TestObserveStdout(t *testing.T) {
	stdout, _, err := execute(t, "observe", "--line1", issLine1, "--line2", issLine2,
		"--start", "54729.5178", "--count", "3", "--sigma", "0.5", "--seed", "3", "--gravity", "wgs84")
	if err != nil {
		t.Fatal(err)
	}
	obs, err := loadObservations(strings.NewReader(stdout), kitlog.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations:\n%s", stdout)
	}
	if _, _, err := execute(t, "observe", "--line1", issLine1, "--line2", issLine2, "--start", "54729.5", "--gravity", "egm96"); err == nil {
		t.Fatal("unknown gravity model should fail")
	}
}
