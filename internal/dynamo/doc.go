// Package dynamo provides core primitives for propagating ordinary
// differential equations.
//
// The package defines the fundamental interfaces and types shared by the
// dynamics models, the adaptive stepper and the propagation service:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Conserved]: systems exposing an integral of motion
//   - [Recorder]: append-only sink notified on every accepted step
//
// # Example
//
//	dyn := physics.NewCR3BP(0.0122)
//	rk := integrators.NewRK78(integrators.WithTolerance(1e-12))
//	stats, err := rk.Integrate(ctx, dyn, x0, 0, 0.5, 1e-5, rec)
//
// # Thread Safety
//
// Nothing in this package holds process-wide mutable state. A [State] is a
// plain slice and must not be shared between concurrent propagations.
package dynamo
