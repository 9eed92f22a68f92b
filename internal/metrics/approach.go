package metrics

import (
	"math"

	"github.com/san-kum/cr3bp/internal/dynamo"
)

// Ranger reports the distances of a state from the two primaries.
type Ranger interface {
	Distances(x dynamo.State) (d, r float64)
}

// ClosestApproach records the minimum distance to either primary.
type ClosestApproach struct {
	name    string
	dyn     Ranger
	minD    float64
	minR    float64
	samples int
}

func NewClosestApproach(dyn Ranger) *ClosestApproach {
	c := &ClosestApproach{name: "closest_approach", dyn: dyn}
	c.Reset()
	return c
}

func (c *ClosestApproach) Name() string { return c.name }

func (c *ClosestApproach) Observe(t float64, x dynamo.State) {
	d, r := c.dyn.Distances(x)
	c.minD = math.Min(c.minD, d)
	c.minR = math.Min(c.minR, r)
	c.samples++
}

func (c *ClosestApproach) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Min(c.minD, c.minR)
}

func (c *ClosestApproach) Reset() {
	c.minD = math.Inf(1)
	c.minR = math.Inf(1)
	c.samples = 0
}
