package od

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// MJDOffset is the Julian date of the Modified Julian Date origin.
const MJDOffset = 2400000.5

// TimeToMJD returns the fractional Modified Julian Date of the provided time.
func TimeToMJD(t time.Time) float64 {
	return julian.TimeToJD(t.UTC()) - MJDOffset
}

// MJDToTime returns the UTC time of the provided Modified Julian Date.
func MJDToTime(mjd float64) time.Time {
	return julian.JDToTime(mjd + MJDOffset).UTC()
}
