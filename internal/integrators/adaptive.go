package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/cr3bp/internal/dynamo"
)

// Stats summarises one call to Integrate. MinAccepted and MaxAccepted
// ignore the final step, which is truncated to land on the end time.
type Stats struct {
	Accepted    int
	Rejected    int
	Evaluations int
	MinAccepted float64
	MaxAccepted float64
	LastStep    float64
}

// Integrate advances x0 from t0 to t1 with adaptive step control, starting
// from a step of magnitude |h0|. rec is notified after every accepted step
// (the initial state is not recorded). The final step lands exactly on t1.
//
// Failures are returned as *dynamo.SimulationError wrapping
// dynamo.ErrSingularity, dynamo.ErrNonConvergence or dynamo.ErrCanceled.
func (r *RK78) Integrate(ctx context.Context, dyn dynamo.System, x0 dynamo.State, t0, t1, h0 float64, rec dynamo.Recorder) (Stats, error) {
	r.evaluations = 0
	stats := Stats{MinAccepted: math.Inf(1)}

	if len(x0) != dyn.StateDim() {
		return stats, fmt.Errorf("%w: state has %d components, system expects %d",
			dynamo.ErrDimensionMismatch, len(x0), dyn.StateDim())
	}
	if rec == nil {
		rec = dynamo.RecorderFunc(func(float64, dynamo.State) {})
	}

	dir := dynamo.Direction(t0, t1)
	h := r.clampStep(math.Copysign(h0, dir))
	if r.maxStep == 0 && math.Abs(h) > math.Abs(t1-t0) {
		h = t1 - t0
	}

	x := x0.Clone()
	t := t0
	retries := 0

	fail := func(err error, hTry float64) (Stats, error) {
		stats.Evaluations = r.evaluations
		if math.IsInf(stats.MinAccepted, 1) {
			stats.MinAccepted = 0
		}
		return stats, &dynamo.SimulationError{
			Step:     stats.Accepted,
			Time:     t,
			StepSize: hTry,
			State:    x.Clone(),
			Wrapped:  err,
		}
	}

	for t != t1 {
		select {
		case <-ctx.Done():
			return fail(fmt.Errorf("%w: %v", dynamo.ErrCanceled, ctx.Err()), h)
		default:
		}

		hTry := h
		last := false
		if remaining := t1 - t; math.Abs(hTry) >= math.Abs(remaining) {
			hTry = remaining
			last = true
		} else if t+hTry == t {
			return fail(fmt.Errorf("%w: step %g underflows at t=%g", dynamo.ErrNonConvergence, hTry, t), hTry)
		}

		res, err := r.TryStep(dyn, x, t, hTry)
		if err != nil {
			return fail(err, hTry)
		}

		if !res.Accepted {
			stats.Rejected++
			retries++
			if retries > r.maxRetries {
				return fail(fmt.Errorf("%w: %d consecutive rejections", dynamo.ErrNonConvergence, retries), hTry)
			}
			if !last && math.Abs(hTry) <= r.minStep {
				return fail(fmt.Errorf("%w: error norm %.3g at minimum step %g", dynamo.ErrNonConvergence, res.ErrNorm, r.minStep), hTry)
			}
			h = res.Next
			continue
		}

		retries = 0
		stats.Accepted++
		if last {
			t = t1
		} else {
			t += hTry
			mag := math.Abs(hTry)
			stats.MinAccepted = math.Min(stats.MinAccepted, mag)
			stats.MaxAccepted = math.Max(stats.MaxAccepted, mag)
			h = res.Next
		}
		stats.LastStep = hTry
		x = res.X
		rec.Record(t, x)

		if r.maxSteps > 0 && stats.Accepted >= r.maxSteps && t != t1 {
			return fail(fmt.Errorf("%w: reached %d accepted steps before t=%g", dynamo.ErrNonConvergence, r.maxSteps, t1), h)
		}
	}

	if math.IsInf(stats.MinAccepted, 1) {
		stats.MinAccepted = 0
	}
	stats.Evaluations = r.evaluations
	return stats, nil
}
