package viz

import (
	"fmt"
	"slices"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cr3bp/internal/physics"
	"github.com/san-kum/cr3bp/internal/trajectory"
)

// Components names the state columns of a trajectory row after the time.
var Components = []string{"x", "y", "z", "vx", "vy", "vz"}

// ComponentIndex returns the row column holding the named component.
func ComponentIndex(name string) (int, error) {
	i := slices.Index(Components, name)
	if i < 0 {
		return 0, fmt.Errorf("unknown component %q (want one of %v)", name, Components)
	}
	return i + 1, nil
}

// PlotComponent charts one state component against the step index.
func PlotComponent(rows [][]float64, name string, width, height int) (string, error) {
	idx, err := ComponentIndex(name)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no samples to plot")
	}
	series := trajectory.Column(rows, idx)
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s over %d steps", name, len(rows))),
	), nil
}

// JacobiDrift returns C(x_i) - C(x_0) for every row.
func JacobiDrift(rows [][]float64, mu float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	c0 := physics.Jacobi(rows[0][1:], mu)
	drift := make([]float64, len(rows))
	for i, row := range rows {
		drift[i] = physics.Jacobi(row[1:], mu) - c0
	}
	return drift
}

// PlotJacobi charts the Jacobi drift relative to the first row.
func PlotJacobi(rows [][]float64, mu float64, width, height int) (string, error) {
	if len(rows) < 2 {
		return "", fmt.Errorf("need at least 2 samples, have %d", len(rows))
	}
	return asciigraph.Plot(JacobiDrift(rows, mu),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption("Jacobi drift"),
	), nil
}
