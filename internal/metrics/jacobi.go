package metrics

import (
	"math"

	"github.com/san-kum/cr3bp/internal/dynamo"
)

// JacobiDrift tracks the largest absolute change of a conserved quantity
// relative to the first observed state.
type JacobiDrift struct {
	name     string
	dyn      dynamo.Conserved
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewJacobiDrift(dyn dynamo.Conserved) *JacobiDrift {
	return &JacobiDrift{
		name: "jacobi_drift",
		dyn:  dyn,
	}
}

func (j *JacobiDrift) Name() string { return j.name }

func (j *JacobiDrift) Observe(t float64, x dynamo.State) {
	c := j.dyn.Invariant(x)

	if j.samples == 0 {
		j.initial = c
	}

	j.current = c
	j.samples++
	j.maxDrift = math.Max(j.maxDrift, math.Abs(c-j.initial))
}

func (j *JacobiDrift) Value() float64 { return j.maxDrift }

func (j *JacobiDrift) Initial() float64 { return j.initial }

func (j *JacobiDrift) Current() float64 { return j.current }

func (j *JacobiDrift) Reset() {
	j.initial = 0
	j.current = 0
	j.maxDrift = 0
	j.samples = 0
}
