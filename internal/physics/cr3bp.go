package physics

import (
	"math"

	"github.com/san-kum/cr3bp/internal/dynamo"
)

// CR3BP implements the circular restricted three-body problem in the
// rotating synodic frame.
// State: [x, y, z, vx, vy, vz]
// The larger primary sits at (-mu, 0, 0) and the smaller at (1-mu, 0, 0).
type CR3BP struct {
	mu float64 // Mass parameter m2/(m1+m2)
}

func NewCR3BP(mu float64) *CR3BP {
	return &CR3BP{mu: mu}
}

func (c *CR3BP) StateDim() int { return 6 }

func (c *CR3BP) Mu() float64 { return c.mu }

func (c *CR3BP) Derive(x dynamo.State, _ float64) dynamo.State {
	return Derivative(x, c.mu)
}

// Derivative evaluates the CR3BP equations of motion. It performs no
// singularity guard: at either primary the result contains NaN or Inf.
func Derivative(x dynamo.State, mu float64) dynamo.State {
	dx := make(dynamo.State, 6)
	DerivativeTo(dx, x, mu)
	return dx
}

// DerivativeTo is Derivative writing into dx, which must have length 6.
func DerivativeTo(dx, x dynamo.State, mu float64) {
	oneMinusMu := 1 - mu

	d := math.Sqrt((x[0]+mu)*(x[0]+mu) + x[1]*x[1] + x[2]*x[2])
	d3 := d * d * d

	// A massless secondary (mu == 0) contributes nothing, even at r == 0.
	var sx, sy, sz float64
	if mu != 0 {
		r := math.Sqrt((x[0]-oneMinusMu)*(x[0]-oneMinusMu) + x[1]*x[1] + x[2]*x[2])
		r3 := r * r * r
		sx = mu * (x[0] - oneMinusMu) / r3
		sy = mu * x[1] / r3
		sz = mu * x[2] / r3
	}

	dx[0] = x[3]
	dx[1] = x[4]
	dx[2] = x[5]
	dx[3] = -oneMinusMu*(x[0]+mu)/d3 - sx + 2*x[4] + x[0]
	dx[4] = -oneMinusMu*x[1]/d3 - sy - 2*x[3] + x[1]
	dx[5] = -oneMinusMu*x[2]/d3 - sz
}

// Distances returns the distance of x from the larger and the smaller primary.
func (c *CR3BP) Distances(x dynamo.State) (d, r float64) {
	d = math.Sqrt((x[0]+c.mu)*(x[0]+c.mu) + x[1]*x[1] + x[2]*x[2])
	r = math.Sqrt((x[0]-1+c.mu)*(x[0]-1+c.mu) + x[1]*x[1] + x[2]*x[2])
	return d, r
}

// Primaries returns the synodic positions of the two primaries.
func (c *CR3BP) Primaries() (p1, p2 [3]float64) {
	return [3]float64{-c.mu, 0, 0}, [3]float64{1 - c.mu, 0, 0}
}

// Invariant returns the Jacobi constant
// C = x^2 + y^2 + 2(1-mu)/d + 2mu/r - v^2.
func (c *CR3BP) Invariant(x dynamo.State) float64 {
	return Jacobi(x, c.mu)
}

func Jacobi(x dynamo.State, mu float64) float64 {
	d := math.Sqrt((x[0]+mu)*(x[0]+mu) + x[1]*x[1] + x[2]*x[2])
	r := math.Sqrt((x[0]-1+mu)*(x[0]-1+mu) + x[1]*x[1] + x[2]*x[2])
	v2 := x[3]*x[3] + x[4]*x[4] + x[5]*x[5]

	u := 2 * (1 - mu) / d
	if mu != 0 {
		u += 2 * mu / r
	}
	return x[0]*x[0] + x[1]*x[1] + u - v2
}

// GetParams implements dynamo.Parameterized.
func (c *CR3BP) GetParams() map[string]float64 {
	return map[string]float64{
		"mu": c.mu,
	}
}
