package delay

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Simulator", func() {
	sim := NewWithSource(rand.NewSource(1701))

	It("Is exact without deviation", func() {
		Expect(sim.Compute(250, 0)).To(Equal(250 * time.Millisecond))
		Expect(sim.Compute(0, 0)).To(Equal(time.Duration(0)))
	})

	It("Stays within the deviation band", func() {
		for i := 0; i < 1000; i++ {
			d := sim.Compute(100, 30)
			Expect(d).To(BeNumerically(">=", 70*time.Millisecond))
			Expect(d).To(BeNumerically("<=", 130*time.Millisecond))
		}
	})

	It("Never goes negative", func() {
		for _, params := range [][2]float64{{0, 50}, {10, 1000}, {0, 0.5}, {1, 1}} {
			for i := 0; i < 500; i++ {
				Expect(sim.Compute(params[0], params[1])).To(BeNumerically(">=", 0))
			}
		}
	})

	It("Saturates averages too large for a duration", func() {
		Expect(sim.Compute(1e13, 0)).To(Equal(time.Duration(math.MaxInt64)))
		Expect(sim.Compute(1e300, 1e300)).To(BeNumerically(">=", 0))
	})

	It("Is safe to share", func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					sim.Compute(5, 5)
				}
			}()
		}
		wg.Wait()
	})
})

var _ = Describe("Wait", func() {
	It("Waits roughly the requested time", func() {
		start := time.Now()

		Expect(Wait(context.Background(), 30*time.Millisecond)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically(">=", 30*time.Millisecond))
	})

	It("Returns early when the context is cancelled", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		start := time.Now()

		Expect(Wait(ctx, time.Minute)).To(MatchError(context.DeadlineExceeded))
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})

	It("Does not hold up other waiters", func() {
		start := time.Now()
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				Wait(context.Background(), 50*time.Millisecond)
			}()
		}
		wg.Wait()

		Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
	})
})
