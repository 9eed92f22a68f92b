package integrators

import (
	"math"

	"github.com/san-kum/cr3bp/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTolerance  = 1e-12
	DefaultSafety     = 0.9
	DefaultMinScale   = 0.2
	DefaultMaxScale   = 5.0
	DefaultMinStep    = 1e-13
	DefaultMaxRetries = 64
)

// RK78 is an error-controlled Runge-Kutta-Fehlberg 7(8) stepper.
//
// An RK78 owns its stage buffers and is not safe for concurrent use; give
// each propagation its own instance.
type RK78 struct {
	tab *Tableau

	absTol   float64
	relTol   float64
	safety   float64
	minScale float64
	maxScale float64

	minStep    float64
	maxStep    float64 // 0 means bounded by the span only
	maxRetries int
	maxSteps   int

	k           []dynamo.State
	scratch     dynamo.State
	evaluations int
}

type Option func(*RK78)

// WithTolerance uses tol as both absolute and relative tolerance.
func WithTolerance(tol float64) Option {
	return func(r *RK78) {
		r.absTol, r.relTol = tol, tol
	}
}

func WithTolerances(abs, rel float64) Option {
	return func(r *RK78) {
		r.absTol, r.relTol = abs, rel
	}
}

// WithStepBounds clamps the step magnitude to [min, max]. A zero max leaves
// the step bounded only by the integration span.
func WithStepBounds(min, max float64) Option {
	return func(r *RK78) {
		r.minStep, r.maxStep = min, max
	}
}

// WithMaxRetries caps consecutive rejections of a single step.
func WithMaxRetries(n int) Option {
	return func(r *RK78) {
		r.maxRetries = n
	}
}

// WithMaxSteps caps accepted steps per integration; 0 disables the cap.
func WithMaxSteps(n int) Option {
	return func(r *RK78) {
		r.maxSteps = n
	}
}

func NewRK78(opts ...Option) *RK78 {
	r := &RK78{
		tab:        Fehlberg78(),
		absTol:     DefaultTolerance,
		relTol:     DefaultTolerance,
		safety:     DefaultSafety,
		minScale:   DefaultMinScale,
		maxScale:   DefaultMaxScale,
		minStep:    DefaultMinStep,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RK78) ensureScratch(n int) {
	if len(r.scratch) != n || len(r.k) != r.tab.Stages() {
		r.k = make([]dynamo.State, r.tab.Stages())
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

// StepResult is the outcome of one attempted step.
type StepResult struct {
	X        dynamo.State // proposed state; valid only when Accepted
	H        float64      // step that was attempted
	Next     float64      // suggested size of the next attempt
	ErrNorm  float64
	Accepted bool
}

// TryStep attempts a single step of size h from (x, t). x is not modified.
// A non-finite stage derivative fails with dynamo.ErrSingularity.
func (r *RK78) TryStep(dyn dynamo.System, x dynamo.State, t, h float64) (StepResult, error) {
	n := len(x)
	r.ensureScratch(n)
	tab := r.tab

	for s := 0; s < tab.Stages(); s++ {
		copy(r.scratch, x)
		for j, a := range tab.A[s] {
			if a != 0 {
				floats.AddScaled(r.scratch, h*a, r.k[j])
			}
		}
		k := dyn.Derive(r.scratch, t+tab.C[s]*h)
		r.evaluations++
		if !k.IsValid() {
			return StepResult{H: h, Next: h}, dynamo.ErrSingularity
		}
		copy(r.k[s], k)
	}

	xHigh := x.Clone()
	for s, b := range tab.B {
		if b != 0 {
			floats.AddScaled(xHigh, h*b, r.k[s])
		}
	}

	norm := 0.0
	for i := 0; i < n; i++ {
		e := 0.0
		for s := range tab.B {
			if w := tab.B[s] - tab.Bhat[s]; w != 0 {
				e += w * r.k[s][i]
			}
		}
		e = math.Abs(h * e)
		scale := r.absTol + r.relTol*math.Max(math.Abs(x[i]), math.Abs(xHigh[i]))
		norm = math.Max(norm, e/scale)
	}
	if math.IsNaN(norm) || math.IsInf(norm, 0) || !xHigh.IsValid() {
		return StepResult{H: h, Next: h}, dynamo.ErrSingularity
	}

	return StepResult{
		X:        xHigh,
		H:        h,
		Next:     r.resize(h, norm),
		ErrNorm:  norm,
		Accepted: norm <= 1,
	}, nil
}

// resize applies h * safety * norm^(-1/(q+1)) with the scale factor and the
// step magnitude clamped. The sign of h is preserved.
func (r *RK78) resize(h, norm float64) float64 {
	factor := r.maxScale
	if norm > 0 {
		factor = r.safety * math.Pow(norm, -1.0/float64(r.tab.ErrorOrder+1))
	}
	factor = math.Max(r.minScale, math.Min(r.maxScale, factor))
	return r.clampStep(h * factor)
}

func (r *RK78) clampStep(h float64) float64 {
	mag := math.Abs(h)
	if r.maxStep > 0 && mag > r.maxStep {
		mag = r.maxStep
	}
	if mag < r.minStep {
		mag = r.minStep
	}
	return math.Copysign(mag, h)
}
