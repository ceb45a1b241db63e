package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/spf13/cobra"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
)

const dateFormat = "2006-01-02 15:04:05"

// options are the persistent flags shared by all commands.
type options struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "od",
		Short: "Orbit determination from geocentric position observations",
		Long: `Determine Keplerian orbits of Earth satellites from timed geocentric positions.

Configuration is read from the file given with --config (TOML, YAML or JSON)
and from OD_* environment variables, e.g. OD_MAX_ITERATIONS=50.

Examples:
  # Preliminary orbit from two positions (Earth radii)
  od prelim --t1 58000 --r1 1.2,0.3,0.1 --t2 58000.01 --r2 0.9,0.8,0.3

  # Synthetic observations of a TLE, then a fit
  od observe --line1 "1 25544U ..." --line2 "2 25544 ..." --start "2008-09-20 12:25:40" > iss.csv
  od fit --method lm iss.csv`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "minimum log level: debug, info, warning or critical")

	root.AddCommand(newPrelimCmd(opts), newFitCmd(opts), newObserveCmd(opts))
	return root
}

// logger returns the logfmt logger of the command, filtered at the requested level.
func (o *options) logger(cmd *cobra.Command) (kitlog.Logger, error) {
	rank, ok := levelRank[strings.ToLower(o.logLevel)]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", o.logLevel)
	}
	return levelFilter{next: od.NewLogger(cmd.ErrOrStderr()), min: rank}, nil
}

// corrector loads the configuration and returns the corrector it describes.
func (o *options) corrector(logger kitlog.Logger) (*od.Corrector, error) {
	conf, err := od.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	return od.NewCorrector(conf, logger)
}
