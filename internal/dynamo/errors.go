package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for propagation.
var (
	// ErrInvalidInput indicates a request rejected before any integration work.
	ErrInvalidInput = errors.New("dynamo: invalid input")

	// ErrSingularity indicates a stage derivative was NaN or Inf, typically
	// because the trajectory reached a primary.
	ErrSingularity = errors.New("dynamo: numerical singularity (non-finite derivative)")

	// ErrNonConvergence indicates the step size collapsed below its floor or
	// the retry ceiling was hit without meeting the tolerance.
	ErrNonConvergence = errors.New("dynamo: step size control did not converge")

	// ErrCanceled indicates the propagation was interrupted by its context.
	ErrCanceled = errors.New("dynamo: propagation canceled by context")

	// ErrDimensionMismatch indicates mismatched state and system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with propagation context.
type SimulationError struct {
	Step     int
	Time     float64
	StepSize float64
	State    State
	Wrapped  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g, h=%.3g): %v", e.Step, e.Time, e.StepSize, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// InvalidInputf returns an error wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
