package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
	"github.com/ralatsdc/system-communication-toolbox-sub001/batch"
	"github.com/ralatsdc/system-communication-toolbox-sub001/internal/observability"
)

type fitOptions struct {
	method      string
	workers     int
	metricsAddr string
	trace       bool
}

func newFitCmd(opts *options) *cobra.Command {
	fo := &fitOptions{}
	cmd := &cobra.Command{
		Use:   "fit <observations.csv>...",
		Short: "Differential correction of one orbit per observation file",
		Long: `Fit a Keplerian orbit to each observation file.

Each file holds "epoch,x,y,z" lines (MJD or UTC date, Earth radii). The seed
orbit comes from Gauss's method on the first observation and the first later
one between 10 and 170 degrees away. Files are processed concurrently.

Tracing is configured with the OD_TRACING_* and OD_OTLP_ENDPOINT variables.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd, opts, fo, args)
		},
	}
	cmd.Flags().StringVarP(&fo.method, "method", "m", "gauss-newton", "gauss-newton (gn) or levenberg-marquardt (lm)")
	cmd.Flags().IntVarP(&fo.workers, "workers", "w", 0, "concurrent fits, GOMAXPROCS when zero")
	cmd.Flags().StringVar(&fo.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while fitting")
	cmd.Flags().BoolVar(&fo.trace, "trace", false, "enable tracing regardless of OD_TRACING_ENABLED")
	return cmd
}

func runFit(cmd *cobra.Command, opts *options, fo *fitOptions, files []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger, err := opts.logger(cmd)
	if err != nil {
		return err
	}
	method, err := od.ParseMethod(fo.method)
	if err != nil {
		return err
	}
	c, err := opts.corrector(logger)
	if err != nil {
		return err
	}

	tcfg := observability.TracingConfigFromEnv()
	tcfg.Enabled = tcfg.Enabled || fo.trace
	if tcfg.Exporter == "stdout" {
		tcfg.Writer = cmd.ErrOrStderr()
	}
	shutdown, err := observability.InitTracing(ctx, tcfg, logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, logger)

	var metrics *observability.Collector
	if fo.metricsAddr != "" {
		if metrics, err = observability.NewCollector(prometheus.NewRegistry()); err != nil {
			return err
		}
		srv := serveMetrics(fo.metricsAddr, metrics, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	jobs := make([]batch.Job, 0, len(files))
	for _, filename := range files {
		obs, err := loadObservationFile(filename, logger)
		if err != nil {
			return err
		}
		jobs = append(jobs, batch.Job{
			ID:           strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
			Observations: obs,
			Method:       method,
		})
	}

	runner := batch.Runner{Corrector: c, Workers: fo.workers, Logger: logger, Metrics: metrics}
	outcomes, err := runner.Run(ctx, jobs)
	printOutcomes(cmd, outcomes)
	if err != nil {
		return err
	}
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
		}
	}
	if failed == len(outcomes) {
		return fmt.Errorf("all %d fits failed", failed)
	}
	return nil
}

func serveMetrics(addr string, metrics *observability.Collector, logger kitlog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Log("level", "info", "subsys", "metrics", "status", "listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log("level", "critical", "subsys", "metrics", "err", err)
		}
	}()
	return srv
}

func printOutcomes(cmd *cobra.Command, outcomes []batch.Outcome) {
	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		if o.ID == "" {
			// never started
			continue
		}
		if o.Err != nil {
			fmt.Fprintf(out, "%s\terror\t%s\n", o.ID, o.Err)
			continue
		}
		el := o.Result.Orbit.Elements()
		fmt.Fprintf(out, "%s\t%s\t%d\t%.6e\ta=%.9f e=%.9f i=%.6f Ω=%.6f ω=%.6f M=%.6f\n",
			o.ID, o.Result.Status, o.Result.Iterations, o.Result.SumOfSquares,
			el[od.SemiMajorAxis], el[od.Eccentricity], od.Rad2deg(el[od.Inclination]),
			od.Rad2deg(el[od.RAAN]), od.Rad2deg(el[od.ArgPerigee]), od.Rad2deg(el[od.MeanAnomaly]))
	}
}
