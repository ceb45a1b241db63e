package od

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// TransferType defines the way the Lambert arc goes around the central body.
type TransferType uint8

const (
	// TTypeAuto picks the short or long way from the sense of rotation about the z axis.
	TTypeAuto TransferType = iota + 1
	// TType1 is the short way (transfer angle below 180 degrees).
	TType1
	// TType2 is the long way.
	TType2
	lambertε  = 1e-4                   // General epsilon
	lambertTε = 1e-4                   // Time epsilon, seconds
	lambertνε = (5e-5 / 180) * math.Pi // 0.00005 degrees
)

func (t TransferType) String() string {
	switch t {
	case TTypeAuto:
		return "auto"
	case TType1:
		return "short-way"
	case TType2:
		return "long-way"
	default:
		panic("unknown transfer type")
	}
}

// Lambert solves the zero revolution Lambert boundary problem with universal
// variables (Vallado, algorithm 58): it returns the velocities at both ends of
// the arc flown from Ri to Rf in Δt0 around a body of gravitational parameter μ,
// and ψ, the square of the difference in eccentric anomaly. Units follow μ.
func Lambert(Ri, Rf *mat.VecDense, Δt0 time.Duration, ttype TransferType, μ float64) (Vi, Vf *mat.VecDense, ψ float64, err error) {
	if Ri.Len() != 3 || Rf.Len() != 3 {
		err = errors.New("initial and final radii must be 3x1 vectors")
		return
	}
	Δt0Sec := Δt0.Seconds()
	rI := mat.Norm(Ri, 2)
	rF := mat.Norm(Rf, 2)
	cosΔν := mat.Dot(Ri, Rf) / (rI * rF)
	dm := 1.0
	switch ttype {
	case TType2:
		dm = -1
	case TTypeAuto:
		Δν := math.Atan2(Rf.AtVec(1), Rf.AtVec(0)) - math.Atan2(Ri.AtVec(1), Ri.AtVec(0))
		if wrap2π(Δν) > math.Pi {
			dm = -1
		}
	}
	A := dm * math.Sqrt(rI*rF*(1+cosΔν))
	if math.Acos(clamp(cosΔν, -1, 1)) < lambertνε && scalar.EqualWithinAbs(A, 0, lambertε) {
		err = errors.New("cannot compute trajectory: Δν ~=0 and A ~=0")
		return
	}

	ψup := 4 * math.Pi * math.Pi
	ψlow := -4 * math.Pi
	c2, c3 := 1/2., 1/6.
	var Δt, y float64
	for iteration := 0; math.Abs(Δt-Δt0Sec) > lambertTε; iteration++ {
		if iteration > 10000 {
			err = fmt.Errorf("did not converge after %d iterations", iteration)
			return
		}
		y = rI + rF + A*(ψ*c3-1)/math.Sqrt(c2)
		if A > 0 && y < 0 {
			// Readjust ψlow until y is positive.
			for tmpIt := 0; y < 0; tmpIt++ {
				if tmpIt > 10000 {
					err = errors.New("did not converge after 10000 attempts to increase ψ")
					return
				}
				ψ += 0.1
				y = rI + rF + A*(ψ*c3-1)/math.Sqrt(c2)
			}
		}
		χ := math.Sqrt(y / c2)
		Δt = (χ*χ*χ*c3 + A*math.Sqrt(y)) / math.Sqrt(μ)
		if Δt <= Δt0Sec {
			ψlow = ψ
		} else {
			ψup = ψ
		}
		ψ = (ψup + ψlow) / 2
		c2, c3 = stumpff(ψ)
	}
	f := 1 - y/rI
	gDot := 1 - y/rF
	g := A * math.Sqrt(y/μ)
	Vi = mat.NewVecDense(3, nil)
	Vi.AddScaledVec(Rf, -f, Ri)
	Vi.ScaleVec(1/g, Vi)
	Vf = mat.NewVecDense(3, nil)
	Vf.ScaleVec(gDot, Rf)
	Vf.SubVec(Vf, Ri)
	Vf.ScaleVec(1/g, Vf)
	return
}

// stumpff returns the c2 and c3 Stumpff functions of ψ.
func stumpff(ψ float64) (c2, c3 float64) {
	switch {
	case ψ > lambertε:
		sψ := math.Sqrt(ψ)
		ssψ, csψ := math.Sincos(sψ)
		return (1 - csψ) / ψ, (sψ - ssψ) / (ψ * sψ)
	case ψ < -lambertε:
		sψ := math.Sqrt(-ψ)
		return (1 - math.Cosh(sψ)) / ψ, (math.Sinh(sψ) - sψ) / (-ψ * sψ)
	default:
		return 1 / 2., 1 / 6.
	}
}

// PreliminaryOrbitLambert returns the short way two body orbit connecting both
// observations by solving Lambert's problem, subject to the same plausibility
// gate as Gauss's method. It is an independent check on PreliminaryOrbit.
func (c *Corrector) PreliminaryOrbitLambert(obsA, obsB Observation) (*KeplerOrbit, error) {
	if err := obsA.Validate(); err != nil {
		return nil, err
	}
	if err := obsB.Validate(); err != nil {
		return nil, err
	}
	switch {
	case obsA.MJD == obsB.MJD:
		return nil, fmt.Errorf("%w: both at MJD %f", ErrTimeSpan, obsA.MJD)
	case obsB.MJD < obsA.MJD:
		return nil, fmt.Errorf("%w: %f precedes %f", ErrObservationOrder, obsB.MJD, obsA.MJD)
	}
	body := c.conf.Body
	Ri := mat.NewVecDense(3, nil)
	Ri.ScaleVec(body.Radius, mat.NewVecDense(3, obsA.R))
	Rf := mat.NewVecDense(3, nil)
	Rf.ScaleVec(body.Radius, mat.NewVecDense(3, obsB.R))
	Δt := time.Duration((obsB.MJD - obsA.MJD) * DaySeconds * float64(time.Second))
	Vi, _, _, err := Lambert(Ri, Rf, Δt, TType1, body.GM())
	if err != nil {
		return nil, err
	}
	o := NewOrbitFromRV(Ri.RawVector().Data, Vi.RawVector().Data, obsA.MJD, body)
	if !c.plausible(o.Elements()) {
		c.logger.Log("level", "notice", "subsys", "lambert", "status", "no valid orbit", "elements", o.Elements())
		return nil, nil
	}
	return o, nil
}
