// Package propagate is the entry point for CR3BP trajectory propagation.
//
// A [Request] carries the caller's initial condition, time span, mass
// parameter, tolerance and initial step magnitude. [Propagate] validates it,
// runs the Runge-Kutta-Fehlberg 7(8) integrator and returns the trajectory
// as rows of [t, x, y, z, vx, vy, vz]:
//
//	res, err := propagate.Propagate(ctx, propagate.Request{
//	    InitialState: []float64{0.788, 0.2, 0, -0.88, 0.2, 0},
//	    Span:         [2]float64{0, 0.5},
//	    Mu:           0.0122,
//	    Tolerance:    1e-12,
//	    Step:         1e-5,
//	})
//
// Errors wrap the sentinels of package dynamo: ErrInvalidInput before any
// integration work, ErrSingularity, ErrNonConvergence or ErrCanceled from
// the step loop. Independent requests may run concurrently, see [Batch].
package propagate
