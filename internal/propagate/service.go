package propagate

import (
	"context"
	"errors"
	"math"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/san-kum/cr3bp/internal/dynamo"
	"github.com/san-kum/cr3bp/internal/integrators"
	"github.com/san-kum/cr3bp/internal/metrics"
	"github.com/san-kum/cr3bp/internal/trajectory"
	"gonum.org/v1/gonum/mat"
)

const StateDim = 6

type Request struct {
	InitialState []float64
	Span         [2]float64
	Mu           float64
	Tolerance    float64
	Step         float64
}

// Validate checks the request without evaluating any dynamics.
func (r Request) Validate() error {
	if len(r.InitialState) != StateDim {
		return dynamo.InvalidInputf("initial state has %d components, want %d", len(r.InitialState), StateDim)
	}
	if !dynamo.State(r.InitialState).IsValid() {
		return dynamo.InvalidInputf("initial state %v is not finite", r.InitialState)
	}
	if !(r.Mu > 0 && r.Mu < 1) {
		return dynamo.InvalidInputf("mu=%g not in (0, 1)", r.Mu)
	}
	if !isFinite(r.Span[0]) || !isFinite(r.Span[1]) {
		return dynamo.InvalidInputf("time span %v is not finite", r.Span)
	}
	if r.Span[0] == r.Span[1] {
		return dynamo.InvalidInputf("empty time span [%g, %g]", r.Span[0], r.Span[1])
	}
	if !isPositive(r.Tolerance) {
		return dynamo.InvalidInputf("tolerance %g must be positive and finite", r.Tolerance)
	}
	if !isPositive(r.Step) {
		return dynamo.InvalidInputf("step %g must be positive and finite", r.Step)
	}
	return nil
}

// InitialStep is the step magnitude signed by the direction of integration.
func (r Request) InitialStep() float64 {
	return dynamo.Direction(r.Span[0], r.Span[1]) * r.Step
}

type JacobiReport struct {
	Initial  float64
	Final    float64
	MaxDrift float64
}

type Result struct {
	Rows            [][]float64
	Stats           integrators.Stats
	Jacobi          JacobiReport
	ClosestApproach float64
	// Partial is set when Rows stop short of the end time because of a failure.
	Partial bool

	observed []dynamo.Metric
}

// Metrics flattens the step statistics and every trajectory metric the run
// observed, keyed by metric name.
func (r *Result) Metrics() map[string]float64 {
	m := map[string]float64{
		"accepted":    float64(r.Stats.Accepted),
		"rejected":    float64(r.Stats.Rejected),
		"evaluations": float64(r.Stats.Evaluations),
		"min_step":    r.Stats.MinAccepted,
		"max_step":    r.Stats.MaxAccepted,
	}
	for _, obs := range r.observed {
		m[obs.Name()] = obs.Value()
	}
	return m
}

// Matrix returns Rows as a len(Rows) x 7 matrix, or nil when empty.
func (r *Result) Matrix() *mat.Dense {
	return trajectory.Dense(r.Rows)
}

type Service struct {
	defaults []Option
}

// NewService returns a service applying opts to every call before the
// per-call options.
func NewService(opts ...Option) *Service {
	return &Service{defaults: opts}
}

// Propagate runs one request with a fresh Service.
func Propagate(ctx context.Context, req Request, opts ...Option) (*Result, error) {
	return NewService().Propagate(ctx, req, opts...)
}

func (s *Service) settings(opts []Option) settings {
	st := defaultSettings()
	for _, opt := range s.defaults {
		opt(&st)
	}
	for _, opt := range opts {
		opt(&st)
	}
	return st
}

func (s *Service) Propagate(ctx context.Context, req Request, opts ...Option) (*Result, error) {
	st := s.settings(opts)
	logger := log.With(st.logger, "component", "propagate")

	if err := req.Validate(); err != nil {
		level.Warn(logger).Log("msg", "rejected request", "err", err)
		return nil, err
	}
	if err := st.validate(); err != nil {
		level.Warn(logger).Log("msg", "rejected options", "err", err)
		return nil, err
	}

	if st.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.timeout)
		defer cancel()
	}

	t0, t1 := req.Span[0], req.Span[1]
	x0 := dynamo.State(req.InitialState).Clone()
	dyn := st.newSystem(req.Mu)

	rec := trajectory.NewRecorder(64)
	if st.includeInitial {
		rec.Record(t0, x0)
	}
	sinks := dynamo.Recorders{rec}

	var observed []dynamo.Metric
	var jacobi *metrics.JacobiDrift
	if c, ok := dyn.(dynamo.Conserved); ok {
		jacobi = metrics.NewJacobiDrift(c)
		observed = append(observed, jacobi)
	}
	var approach *metrics.ClosestApproach
	if r, ok := dyn.(metrics.Ranger); ok {
		approach = metrics.NewClosestApproach(r)
		observed = append(observed, approach)
	}
	for _, m := range observed {
		m.Observe(t0, x0)
		sinks = append(sinks, dynamo.RecorderFunc(m.Observe))
	}
	sinks = append(sinks, st.observers...)

	level.Debug(logger).Log("msg", "propagation start", "mu", req.Mu,
		"t0", t0, "t1", t1, "tol", req.Tolerance, "h0", req.InitialStep())

	rk := integrators.NewRK78(st.stepperOptions(req)...)
	stats, err := rk.Integrate(ctx, dyn, x0, t0, t1, req.InitialStep(), sinks)

	res := &Result{
		Rows:     trajectory.Rows(rec.Samples()),
		Stats:    stats,
		observed: observed,
	}
	if jacobi != nil {
		res.Jacobi = JacobiReport{Initial: jacobi.Initial(), Final: jacobi.Current(), MaxDrift: jacobi.Value()}
	}
	if approach != nil {
		res.ClosestApproach = approach.Value()
	}

	if err != nil {
		var simErr *dynamo.SimulationError
		if errors.As(err, &simErr) {
			level.Error(logger).Log("msg", "propagation failed", "t", simErr.Time, "h", simErr.StepSize,
				"accepted", stats.Accepted, "err", err)
		} else {
			level.Error(logger).Log("msg", "propagation failed", "err", err)
		}
		if st.partialOnFailure {
			res.Partial = true
			return res, err
		}
		return nil, err
	}

	level.Info(logger).Log("msg", "propagation done", "rows", rec.Len(),
		"accepted", stats.Accepted, "rejected", stats.Rejected, "evals", stats.Evaluations,
		"jacobi_drift", res.Jacobi.MaxDrift)

	return res, nil
}

func (st *settings) validate() error {
	if !(st.absTol >= 0 && isFinite(st.absTol)) || !(st.relTol >= 0 && isFinite(st.relTol)) {
		return dynamo.InvalidInputf("tolerances abs=%g rel=%g", st.absTol, st.relTol)
	}
	if st.minStep < 0 || st.maxStep < 0 || !isFinite(st.minStep) || !isFinite(st.maxStep) {
		return dynamo.InvalidInputf("step bounds [%g, %g]", st.minStep, st.maxStep)
	}
	if st.maxStep > 0 && st.minStep > st.maxStep {
		return dynamo.InvalidInputf("min step %g exceeds max step %g", st.minStep, st.maxStep)
	}
	if st.maxRetries < 0 || st.maxSteps < 0 {
		return dynamo.InvalidInputf("negative retry or step ceiling")
	}
	return nil
}

func (st *settings) stepperOptions(req Request) []integrators.Option {
	opts := []integrators.Option{integrators.WithTolerance(req.Tolerance)}
	if st.absTol != 0 || st.relTol != 0 {
		abs, rel := st.absTol, st.relTol
		if abs == 0 {
			abs = req.Tolerance
		}
		if rel == 0 {
			rel = req.Tolerance
		}
		opts = append(opts, integrators.WithTolerances(abs, rel))
	}
	if st.minStep != 0 || st.maxStep != 0 {
		minStep := st.minStep
		if minStep == 0 {
			minStep = integrators.DefaultMinStep
		}
		opts = append(opts, integrators.WithStepBounds(minStep, st.maxStep))
	}
	if st.maxRetries > 0 {
		opts = append(opts, integrators.WithMaxRetries(st.maxRetries))
	}
	if st.maxSteps > 0 {
		opts = append(opts, integrators.WithMaxSteps(st.maxSteps))
	}
	return opts
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isPositive(v float64) bool {
	return v > 0 && isFinite(v)
}
