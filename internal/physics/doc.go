// Package physics provides the dynamics models propagated by the
// integrators.
//
// [CR3BP] implements the [dynamo.System] interface for the circular
// restricted three-body problem in the rotating synodic frame, with the
// primaries fixed on the x axis at (-mu, 0, 0) and (1-mu, 0, 0). All
// quantities are dimensionless: unit distance is the primaries' separation,
// unit time is 1/(mean motion).
//
// The model also implements [dynamo.Conserved], returning the Jacobi
// constant, and [dynamo.Parameterized], reporting mu by name.
//
// # Jacobi Constant
//
// Use the invariant to monitor integration error along a trajectory:
//
//	dyn := physics.NewCR3BP(0.0122)
//	c0 := dyn.Invariant(x0)
//	drift := math.Abs(dyn.Invariant(x) - c0)
package physics
