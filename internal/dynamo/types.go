package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is an autonomous or time-dependent ODE right-hand side.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Conserved is implemented by systems with an integral of motion.
type Conserved interface {
	Invariant(x State) float64
}

// Parameterized exposes the physical parameters of a system by name.
type Parameterized interface {
	GetParams() map[string]float64
}

// Recorder receives every accepted (time, state) pair in acceptance order.
// Implementations must copy x if they retain it.
type Recorder interface {
	Record(t float64, x State)
}

// RecorderFunc adapts a plain function to Recorder.
type RecorderFunc func(t float64, x State)

func (f RecorderFunc) Record(t float64, x State) { f(t, x) }

// Recorders fans one accepted step out to several sinks.
type Recorders []Recorder

func (rs Recorders) Record(t float64, x State) {
	for _, r := range rs {
		if r != nil {
			r.Record(t, x)
		}
	}
}

// Metric is an observer that reduces a trajectory to one named value.
type Metric interface {
	Name() string
	Observe(t float64, x State)
	Value() float64
	Reset()
}

// Direction returns +1 for forward propagation from t0 to t1 and -1 otherwise.
func Direction(t0, t1 float64) float64 {
	if t1 >= t0 {
		return 1
	}
	return -1
}
