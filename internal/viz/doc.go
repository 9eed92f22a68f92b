// Package viz renders propagated trajectories in the terminal.
//
//   - [PlotComponent] and [PlotJacobi]: asciigraph line charts of one state
//     component or of the Jacobi drift against the step index
//   - [Canvas]: Braille sub-pixel canvas for the synodic x-y plane
//   - [LiveModel]: Bubble Tea program that follows a propagation as it runs
//
// # Key Bindings
//
//	q, ctrl+c - quit (cancels a running propagation)
//	p         - toggle the x-y canvas and the component chart
//	tab       - cycle the charted component
//
// [LiveModel.WithFit] zooms the track onto the trajectory instead of the
// fixed synodic window.
package viz
