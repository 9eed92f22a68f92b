package propagate

import (
	"time"

	"github.com/go-kit/kit/log"
	"github.com/san-kum/cr3bp/internal/dynamo"
	"github.com/san-kum/cr3bp/internal/physics"
)

type settings struct {
	includeInitial   bool
	partialOnFailure bool

	absTol, relTol   float64
	minStep, maxStep float64
	maxRetries       int
	maxSteps         int
	timeout          time.Duration

	logger    log.Logger
	observers []dynamo.Recorder
	newSystem func(mu float64) dynamo.System
}

func defaultSettings() settings {
	return settings{
		logger: log.NewNopLogger(),
		newSystem: func(mu float64) dynamo.System {
			return physics.NewCR3BP(mu)
		},
	}
}

type Option func(*settings)

// WithInitialState emits the initial condition as the first row. Off by
// default: only accepted steps produce rows.
func WithInitialState(include bool) Option {
	return func(s *settings) {
		s.includeInitial = include
	}
}

// WithPartialOnFailure returns the rows accumulated before a step-loop
// failure alongside the error instead of a nil result.
func WithPartialOnFailure(partial bool) Option {
	return func(s *settings) {
		s.partialOnFailure = partial
	}
}

// WithTolerances replaces the request's single tolerance with separate
// absolute and relative tolerances. A zero half keeps the request tolerance.
func WithTolerances(abs, rel float64) Option {
	return func(s *settings) {
		s.absTol, s.relTol = abs, rel
	}
}

func WithStepBounds(min, max float64) Option {
	return func(s *settings) {
		s.minStep, s.maxStep = min, max
	}
}

func WithMaxRetries(n int) Option {
	return func(s *settings) {
		s.maxRetries = n
	}
}

func WithMaxSteps(n int) Option {
	return func(s *settings) {
		s.maxSteps = n
	}
}

// WithTimeout bounds the wall-clock time of each propagation.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

func WithLogger(logger log.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver adds a sink notified on every accepted step after the
// trajectory recorder. Observers shared by a Batch must be safe for
// concurrent use.
func WithObserver(obs dynamo.Recorder) Option {
	return func(s *settings) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

// WithSystem overrides the dynamics constructor, e.g. to instrument it.
func WithSystem(newSystem func(mu float64) dynamo.System) Option {
	return func(s *settings) {
		if newSystem != nil {
			s.newSystem = newSystem
		}
	}
}
