// Package trajectory collects accepted integration samples and turns them
// into the time-stamped output matrix.
package trajectory

import (
	"github.com/san-kum/cr3bp/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Sample is one accepted (time, state) pair.
type Sample struct {
	T float64
	X dynamo.State
}

// Recorder is an append-only sink of samples. It implements dynamo.Recorder.
type Recorder struct {
	samples []Sample
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{samples: make([]Sample, 0, capacity)}
}

// Record appends a copy of x.
func (r *Recorder) Record(t float64, x dynamo.State) {
	r.samples = append(r.samples, Sample{T: t, X: x.Clone()})
}

func (r *Recorder) Len() int { return len(r.samples) }

// Samples returns the recorded samples in acceptance order. The slice is
// shared with the recorder and must not be modified.
func (r *Recorder) Samples() []Sample { return r.samples }

// Rows assembles [t, x0, x1, ...] rows in sample order.
func Rows(samples []Sample) [][]float64 {
	rows := make([][]float64, len(samples))
	for i, s := range samples {
		row := make([]float64, len(s.X)+1)
		row[0] = s.T
		copy(row[1:], s.X)
		rows[i] = row
	}
	return rows
}

// Dense copies rows into a gonum matrix, or returns nil when empty.
func Dense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data)
}

// Column extracts column idx of rows; rows too short contribute 0.
func Column(rows [][]float64, idx int) []float64 {
	col := make([]float64, len(rows))
	for i, row := range rows {
		if idx < len(row) {
			col[i] = row[idx]
		}
	}
	return col
}
