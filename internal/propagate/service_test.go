package propagate_test

import (
	"bytes"
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cr3bp/internal/dynamo"
	"github.com/san-kum/cr3bp/internal/physics"
	"github.com/san-kum/cr3bp/internal/propagate"
)

// countingSystem wraps the CR3BP and counts derivative evaluations.
type countingSystem struct {
	*physics.CR3BP
	calls *atomic.Int64
}

func (c countingSystem) Derive(x dynamo.State, t float64) dynamo.State {
	c.calls.Add(1)
	return c.CR3BP.Derive(x, t)
}

// poisonedSystem turns non-finite once t passes at.
type poisonedSystem struct {
	*physics.CR3BP
	at float64
}

func (p poisonedSystem) Derive(x dynamo.State, t float64) dynamo.State {
	if t > p.at {
		return dynamo.State{math.Inf(1), 0, 0, 0, 0, 0}
	}
	return p.CR3BP.Derive(x, t)
}

// bareSystem hides every optional interface of the CR3BP.
type bareSystem struct {
	cr *physics.CR3BP
}

func (b bareSystem) Derive(x dynamo.State, t float64) dynamo.State { return b.cr.Derive(x, t) }

func (b bareSystem) StateDim() int { return b.cr.StateDim() }

type slowSystem struct {
	*physics.CR3BP
}

func (s slowSystem) Derive(x dynamo.State, t float64) dynamo.State {
	time.Sleep(time.Millisecond)
	return s.CR3BP.Derive(x, t)
}

func demoRequest() propagate.Request {
	return propagate.Request{
		InitialState: []float64{0.788, 0.200, 0.0, -0.88, 0.20, 0.0},
		Span:         [2]float64{0, 0.5},
		Mu:           0.0122,
		Tolerance:    1e-12,
		Step:         1e-5,
	}
}

var _ = Describe("Request", func() {
	DescribeTable("Validate rejects bad input",
		func(mutate func(*propagate.Request)) {
			req := demoRequest()
			mutate(&req)
			Expect(req.Validate()).To(MatchError(dynamo.ErrInvalidInput))
		},
		Entry("short initial state", func(r *propagate.Request) { r.InitialState = r.InitialState[:5] }),
		Entry("long initial state", func(r *propagate.Request) { r.InitialState = append(r.InitialState, 0) }),
		Entry("NaN in initial state", func(r *propagate.Request) { r.InitialState[2] = math.NaN() }),
		Entry("mu zero", func(r *propagate.Request) { r.Mu = 0 }),
		Entry("mu one", func(r *propagate.Request) { r.Mu = 1 }),
		Entry("mu NaN", func(r *propagate.Request) { r.Mu = math.NaN() }),
		Entry("degenerate span", func(r *propagate.Request) { r.Span = [2]float64{0.3, 0.3} }),
		Entry("infinite span", func(r *propagate.Request) { r.Span[1] = math.Inf(1) }),
		Entry("zero tolerance", func(r *propagate.Request) { r.Tolerance = 0 }),
		Entry("negative tolerance", func(r *propagate.Request) { r.Tolerance = -1e-9 }),
		Entry("infinite tolerance", func(r *propagate.Request) { r.Tolerance = math.Inf(1) }),
		Entry("zero step", func(r *propagate.Request) { r.Step = 0 }),
		Entry("NaN step", func(r *propagate.Request) { r.Step = math.NaN() }),
	)

	It("accepts the demo request", func() {
		Expect(demoRequest().Validate()).To(Succeed())
	})

	It("signs the initial step by direction", func() {
		req := demoRequest()
		Expect(req.InitialStep()).To(Equal(1e-5))
		req.Span = [2]float64{0.5, 0}
		Expect(req.InitialStep()).To(Equal(-1e-5))
	})
})

var _ = Describe("Propagate", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("lands exactly on the end time with strictly increasing rows", func() {
		res, err := propagate.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Rows).NotTo(BeEmpty())

		last := res.Rows[len(res.Rows)-1]
		Expect(last[0]).To(Equal(0.5))
		Expect(res.Rows[0][0]).To(BeNumerically(">", 0), "initial state is not a row by default")
		for i, row := range res.Rows {
			Expect(row).To(HaveLen(7))
			if i > 0 {
				Expect(row[0]).To(BeNumerically(">", res.Rows[i-1][0]))
			}
		}
		Expect(res.Stats.Accepted).To(Equal(len(res.Rows)))
		Expect(res.Partial).To(BeFalse())
	})

	It("keeps the Jacobi constant within a tolerance-scaled bound", func() {
		res, err := propagate.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())

		dyn := physics.NewCR3BP(0.0122)
		Expect(res.Jacobi.Initial).To(Equal(dyn.Invariant(demoRequest().InitialState)))
		Expect(res.Jacobi.MaxDrift).To(BeNumerically("<", 1e-10))
		Expect(res.ClosestApproach).To(BeNumerically(">", 0.1))
	})

	It("emits the initial condition when asked", func() {
		plain, err := propagate.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())

		res, err := propagate.Propagate(ctx, demoRequest(), propagate.WithInitialState(true))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Rows).To(HaveLen(len(plain.Rows) + 1))
		Expect(res.Rows[0]).To(Equal([]float64{0, 0.788, 0.200, 0.0, -0.88, 0.20, 0.0}))
		Expect(res.Rows[1:]).To(Equal(plain.Rows))
	})

	It("propagates backward in time", func() {
		req := demoRequest()
		req.Span = [2]float64{0, -0.5}

		res, err := propagate.Propagate(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Rows[len(res.Rows)-1][0]).To(Equal(-0.5))
		for i := 1; i < len(res.Rows); i++ {
			Expect(res.Rows[i][0]).To(BeNumerically("<", res.Rows[i-1][0]))
		}
	})

	It("returns to the initial condition after a round trip", func() {
		fwd, err := propagate.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())

		back := demoRequest()
		back.InitialState = fwd.Rows[len(fwd.Rows)-1][1:]
		back.Span = [2]float64{0.5, 0}
		res, err := propagate.Propagate(ctx, back)
		Expect(err).NotTo(HaveOccurred())

		final := res.Rows[len(res.Rows)-1]
		Expect(final[0]).To(Equal(0.0))
		for i, v := range demoRequest().InitialState {
			Expect(final[i+1]).To(BeNumerically("~", v, 1e-9))
		}
	})

	It("does not modify the caller's initial state", func() {
		req := demoRequest()
		_, err := propagate.Propagate(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(req.InitialState).To(Equal(demoRequest().InitialState))
	})

	It("fails fast on a 5-component state without evaluating the dynamics", func() {
		calls := &atomic.Int64{}
		req := demoRequest()
		req.InitialState = req.InitialState[:5]

		res, err := propagate.Propagate(ctx, req, propagate.WithSystem(func(mu float64) dynamo.System {
			return countingSystem{CR3BP: physics.NewCR3BP(mu), calls: calls}
		}))
		Expect(err).To(MatchError(dynamo.ErrInvalidInput))
		Expect(res).To(BeNil())
		Expect(calls.Load()).To(BeZero())
	})

	It("counts every stage evaluation", func() {
		calls := &atomic.Int64{}
		res, err := propagate.Propagate(ctx, demoRequest(), propagate.WithSystem(func(mu float64) dynamo.System {
			return countingSystem{CR3BP: physics.NewCR3BP(mu), calls: calls}
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(BeEquivalentTo(res.Stats.Evaluations))
	})

	It("rejects inconsistent options", func() {
		_, err := propagate.Propagate(ctx, demoRequest(), propagate.WithStepBounds(1e-2, 1e-3))
		Expect(err).To(MatchError(dynamo.ErrInvalidInput))

		_, err = propagate.Propagate(ctx, demoRequest(), propagate.WithTolerances(-1, 1e-9))
		Expect(err).To(MatchError(dynamo.ErrInvalidInput))
	})

	It("honours split tolerances and step bounds", func() {
		res, err := propagate.Propagate(ctx, demoRequest(),
			propagate.WithTolerances(1e-10, 1e-10),
			propagate.WithStepBounds(1e-4, 1e-2),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.MinAccepted).To(BeNumerically(">=", 1e-4))
		Expect(res.Stats.MaxAccepted).To(BeNumerically("<=", 1e-2))
		Expect(res.Rows[len(res.Rows)-1][0]).To(Equal(0.5))
	})

	Context("when the dynamics become singular", func() {
		poisoned := propagate.WithSystem(func(mu float64) dynamo.System {
			return poisonedSystem{CR3BP: physics.NewCR3BP(mu), at: 0.2}
		})

		It("returns no trajectory by default", func() {
			res, err := propagate.Propagate(ctx, demoRequest(), poisoned)
			Expect(err).To(MatchError(dynamo.ErrSingularity))
			Expect(res).To(BeNil())

			var simErr *dynamo.SimulationError
			Expect(err).To(BeAssignableToTypeOf(simErr))
		})

		It("returns the partial trajectory when requested", func() {
			res, err := propagate.Propagate(ctx, demoRequest(), poisoned, propagate.WithPartialOnFailure(true))
			Expect(err).To(MatchError(dynamo.ErrSingularity))
			Expect(res).NotTo(BeNil())
			Expect(res.Partial).To(BeTrue())
			Expect(res.Rows).NotTo(BeEmpty())
			for _, row := range res.Rows {
				Expect(row[0]).To(BeNumerically("<=", 0.2))
				Expect(dynamo.State(row).IsValid()).To(BeTrue())
			}
		})

		It("fails when starting on a primary", func() {
			req := demoRequest()
			req.InitialState = []float64{-req.Mu, 0, 0, 0, 0, 0}
			_, err := propagate.Propagate(ctx, req)
			Expect(err).To(MatchError(dynamo.ErrSingularity))
		})
	})

	It("surfaces non-convergence when the step ceiling is hit", func() {
		res, err := propagate.Propagate(ctx, demoRequest(),
			propagate.WithMaxSteps(5), propagate.WithPartialOnFailure(true))
		Expect(err).To(MatchError(dynamo.ErrNonConvergence))
		Expect(res.Rows).To(HaveLen(5))
	})

	It("stops when the context is canceled", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := propagate.Propagate(canceled, demoRequest())
		Expect(err).To(MatchError(dynamo.ErrCanceled))
	})

	It("stops at the configured timeout", func() {
		req := demoRequest()
		req.Span = [2]float64{0, 100}
		_, err := propagate.Propagate(ctx, req,
			propagate.WithTimeout(20*time.Millisecond),
			propagate.WithSystem(func(mu float64) dynamo.System {
				return slowSystem{CR3BP: physics.NewCR3BP(mu)}
			}),
		)
		Expect(err).To(MatchError(dynamo.ErrCanceled))
	})

	It("feeds observers every accepted step", func() {
		var times []float64
		obs := dynamo.RecorderFunc(func(t float64, _ dynamo.State) { times = append(times, t) })

		res, err := propagate.Propagate(ctx, demoRequest(), propagate.WithObserver(obs))
		Expect(err).NotTo(HaveOccurred())
		Expect(times).To(Equal(firstColumn(res.Rows)))
	})

	It("logs through the configured go-kit logger", func() {
		var buf bytes.Buffer
		svc := propagate.NewService(propagate.WithLogger(log.NewLogfmtLogger(&buf)))

		_, err := svc.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("component=propagate"))
		Expect(buf.String()).To(ContainSubstring(`msg="propagation done"`))

		buf.Reset()
		req := demoRequest()
		req.Mu = 2
		_, err = svc.Propagate(ctx, req)
		Expect(err).To(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring(`msg="rejected request"`))
	})

	It("reports run metrics by name", func() {
		res, err := propagate.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())
		m := res.Metrics()
		Expect(m).To(HaveKeyWithValue("accepted", float64(res.Stats.Accepted)))
		Expect(m).To(HaveKeyWithValue("jacobi_drift", res.Jacobi.MaxDrift))
		Expect(m).To(HaveKeyWithValue("closest_approach", res.ClosestApproach))
	})

	It("omits metrics the dynamics cannot support", func() {
		res, err := propagate.Propagate(ctx, demoRequest(), propagate.WithSystem(func(mu float64) dynamo.System {
			return bareSystem{physics.NewCR3BP(mu)}
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics()).NotTo(HaveKey("jacobi_drift"))
		Expect(res.Metrics()).NotTo(HaveKey("closest_approach"))
	})

	It("exposes the rows as a matrix", func() {
		res, err := propagate.Propagate(ctx, demoRequest())
		Expect(err).NotTo(HaveOccurred())

		m := res.Matrix()
		r, c := m.Dims()
		Expect(r).To(Equal(len(res.Rows)))
		Expect(c).To(Equal(7))
		Expect(m.RawRowView(r - 1)).To(Equal(res.Rows[r-1]))
		Expect(m.At(r-1, 0)).To(Equal(0.5))
	})

	DescribeTable("falls back to the request tolerance for an unset half",
		func(split, explicit propagate.Option) {
			got, err := propagate.Propagate(ctx, demoRequest(), split)
			Expect(err).NotTo(HaveOccurred())
			want, err := propagate.Propagate(ctx, demoRequest(), explicit)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Rows).To(Equal(want.Rows))
		},
		Entry("relative unset", propagate.WithTolerances(1e-10, 0), propagate.WithTolerances(1e-10, 1e-12)),
		Entry("absolute unset", propagate.WithTolerances(0, 1e-10), propagate.WithTolerances(1e-12, 1e-10)),
	)
})

func firstColumn(rows [][]float64) []float64 {
	col := make([]float64, len(rows))
	for i, row := range rows {
		col[i] = row[0]
	}
	return col
}
