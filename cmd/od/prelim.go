package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
)

type prelimOptions struct {
	t1, t2  string
	r1, r2  string
	lambert bool
}

func newPrelimCmd(opts *options) *cobra.Command {
	po := &prelimOptions{}
	cmd := &cobra.Command{
		Use:   "prelim",
		Short: "Preliminary orbit from two timed positions",
		Long: `Compute the two body orbit through two geocentric positions with Gauss's method.

Epochs are MJDs or UTC dates ("2006-01-02 15:04:05"), positions are comma
separated components in Earth radii. No orbit is printed if the result is not a
plausible Earth satellite orbit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrelim(cmd, opts, po)
		},
	}
	cmd.Flags().StringVar(&po.t1, "t1", "", "epoch of the first position")
	cmd.Flags().StringVar(&po.r1, "r1", "", "first position x,y,z (Earth radii)")
	cmd.Flags().StringVar(&po.t2, "t2", "", "epoch of the second position")
	cmd.Flags().StringVar(&po.r2, "r2", "", "second position x,y,z (Earth radii)")
	cmd.Flags().BoolVar(&po.lambert, "lambert", false, "also solve Lambert's problem between both positions")
	for _, name := range []string{"t1", "r1", "t2", "r2"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runPrelim(cmd *cobra.Command, opts *options, po *prelimOptions) error {
	logger, err := opts.logger(cmd)
	if err != nil {
		return err
	}
	c, err := opts.corrector(logger)
	if err != nil {
		return err
	}
	obsA, err := parseObservation(po.t1, po.r1)
	if err != nil {
		return fmt.Errorf("first observation: %w", err)
	}
	obsB, err := parseObservation(po.t2, po.r2)
	if err != nil {
		return fmt.Errorf("second observation: %w", err)
	}
	prelim, err := c.PreliminaryOrbit(obsA, obsB)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sector ratio\t%.12f (%d iterations, converged=%t)\n", prelim.SectorRatio, prelim.Iterations, prelim.Converged)
	if prelim.Orbit == nil {
		fmt.Fprintln(out, "gauss\tno plausible orbit")
	} else {
		fmt.Fprintf(out, "gauss\t%s\n", prelim.Orbit)
	}
	if po.lambert {
		o, err := c.PreliminaryOrbitLambert(obsA, obsB)
		if err != nil {
			return fmt.Errorf("lambert: %w", err)
		}
		fmt.Fprintf(out, "lambert\t%s\n", o)
	}
	return nil
}

func parseObservation(epoch, position string) (od.Observation, error) {
	mjd, err := parseEpoch(epoch)
	if err != nil {
		return od.Observation{}, err
	}
	R, err := parseVector(position)
	if err != nil {
		return od.Observation{}, err
	}
	o := od.Observation{MJD: mjd, R: R}
	return o, o.Validate()
}

func parseVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	v := make([]float64, len(fields))
	for i, f := range fields {
		var err error
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return nil, err
		}
	}
	return v, nil
}
