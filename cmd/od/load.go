package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	kitlog "github.com/go-kit/log"

	od "github.com/ralatsdc/system-communication-toolbox-sub001"
)

// loadObservationFile reads observations from a CSV file of `epoch,x,y,z`
// lines, where the epoch is either an MJD or a UTC date and the position is in
// Earth radii. Malformed lines are skipped with a warning.
func loadObservationFile(filename string, logger kitlog.Logger) ([]od.Observation, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return loadObservations(file, kitlog.With(logger, "file", filepath.Base(filename)))
}

func loadObservations(r io.Reader, logger kitlog.Logger) ([]od.Observation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)
	var obs []od.Observation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		// Remove double quotes
		line = strings.Replace(line, "\"", "", -1)
		if len(line) == 0 || line[0:1] == "#" {
			continue
		}
		entries := strings.Split(line, ",")
		if len(entries) != 4 {
			logger.Log("level", "warning", "status", "skipping line", "line", lineNo, "err", fmt.Sprintf("%d fields", len(entries)))
			continue
		}
		mjd, terr := parseEpoch(entries[0])
		if terr != nil {
			// A header has no numerical epoch.
			if len(obs) > 0 {
				logger.Log("level", "warning", "status", "skipping malformatted epoch", "line", lineNo, "err", terr)
			}
			continue
		}
		R := make([]float64, 3)
		var ferr error
		for i := 0; i < 3 && ferr == nil; i++ {
			R[i], ferr = strconv.ParseFloat(strings.TrimSpace(entries[i+1]), 64)
		}
		if ferr != nil {
			logger.Log("level", "warning", "status", "skipping malformatted position", "line", lineNo, "err", ferr)
			continue
		}
		o := od.Observation{MJD: mjd, R: R}
		if verr := o.Validate(); verr != nil {
			logger.Log("level", "warning", "status", "skipping invalid observation", "line", lineNo, "err", verr)
			continue
		}
		obs = append(obs, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	od.SortObservations(obs)
	logger.Log("level", "debug", "status", "loaded", "observations", len(obs))
	return obs, nil
}

// parseEpoch reads either an MJD or a UTC date.
func parseEpoch(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if mjd, err := strconv.ParseFloat(s, 64); err == nil {
		return mjd, nil
	}
	dt, err := time.Parse(dateFormat, s)
	if err != nil {
		return 0, err
	}
	return od.TimeToMJD(dt), nil
}
