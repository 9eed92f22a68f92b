package propagate_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cr3bp/internal/dynamo"
	"github.com/san-kum/cr3bp/internal/propagate"
)

var _ = Describe("Batch", func() {
	requests := func() []propagate.Request {
		fwd := demoRequest()
		back := demoRequest()
		back.Span = [2]float64{0, -0.5}
		loose := demoRequest()
		loose.Tolerance = 1e-8
		return []propagate.Request{fwd, back, loose}
	}

	It("matches sequential propagation", func() {
		ctx := context.Background()
		results, err := propagate.Batch(ctx, requests(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		for i, req := range requests() {
			want, err := propagate.Propagate(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[i].Rows).To(Equal(want.Rows))
		}
		Expect(results[1].Rows[len(results[1].Rows)-1][0]).To(Equal(-0.5))
	})

	It("fails the whole batch on an invalid request", func() {
		reqs := requests()
		reqs[1].Mu = -1
		results, err := propagate.NewService().Batch(context.Background(), reqs, 0)
		Expect(err).To(MatchError(dynamo.ErrInvalidInput))
		Expect(err.Error()).To(ContainSubstring("request 1"))
		Expect(results).To(BeNil())
	})
})
