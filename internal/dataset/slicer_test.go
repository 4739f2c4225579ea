package dataset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajstore/internal/dataset"
	"github.com/san-kum/trajstore/internal/traj"
)

// rampTrajectory builds a length-l trajectory whose step i is {id, i}, so
// both the owning trajectory and the step are recoverable from any window.
func rampTrajectory(id float64, l int) traj.Trajectory {
	t := make(traj.Trajectory, l)
	for i := range t {
		t[i] = traj.State{id, float64(i)}
	}
	return t
}

var _ = Describe("Slicer", func() {
	It("rejects invalid window geometry", func() {
		_, err := dataset.NewSlicer(0, 2, 1)
		Expect(err).To(HaveOccurred())

		_, err = dataset.NewSlicer(2, 0, 1)
		Expect(err).To(HaveOccurred())

		_, err = dataset.NewSlicer(2, 1, 0)
		Expect(err).To(HaveOccurred())

		_, err = dataset.NewSlicer(-1, 1, 1)
		Expect(err).To(HaveOccurred())
	})

	It("produces L - tPrediction - tSkip pairs with the configured window lengths", func() {
		const (
			l     = 10
			tSkip = 2
			tHist = 3
			tPred = 2
		)
		s, err := dataset.NewSlicer(tSkip, tHist, tPred)
		Expect(err).NotTo(HaveOccurred())

		s.Append(rampTrajectory(1, l))
		Expect(s.Len()).To(Equal(l - tPred - tSkip))

		for i := 0; i < s.Len(); i++ {
			history, future := s.At(i)
			Expect(history.Len()).To(Equal(tHist))
			Expect(future.Len()).To(Equal(tPred))
		}
	})

	It("anchors pairs at consecutive increasing times", func() {
		s, err := dataset.NewSlicer(2, 3, 2)
		Expect(err).NotTo(HaveOccurred())
		s.Append(rampTrajectory(1, 10))

		for i := 0; i < s.Len(); i++ {
			history, future := s.At(i)
			anchor := float64(2 + i)
			// History ends at the anchor step, future starts right after.
			Expect(history[len(history)-1][1]).To(Equal(anchor))
			Expect(future[0][1]).To(Equal(anchor + 1))
		}
	})

	It("silently contributes zero pairs for too-short trajectories", func() {
		s, err := dataset.NewSlicer(2, 3, 2)
		Expect(err).NotTo(HaveOccurred())

		s.Append(rampTrajectory(1, 3))
		Expect(s.Len()).To(Equal(0))

		// Exactly at the threshold: one anchor.
		s.Append(rampTrajectory(2, 5))
		Expect(s.Len()).To(Equal(1))
	})

	It("keeps issued indices stable across appends", func() {
		s, err := dataset.NewSlicer(0, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		a := rampTrajectory(1, 6)
		s.Append(a)
		lenA := s.Len()
		Expect(lenA).To(Equal(5))

		type pair struct{ history, future traj.Trajectory }
		before := make([]pair, lenA)
		for i := range before {
			h, f := s.At(i)
			before[i] = pair{h, f}
		}

		b := rampTrajectory(2, 4)
		s.Append(b)
		Expect(s.Len()).To(Equal(lenA + 3))

		for i := range before {
			h, f := s.At(i)
			Expect(h).To(Equal(before[i].history))
			Expect(f).To(Equal(before[i].future))
		}
		for i := lenA; i < s.Len(); i++ {
			h, _ := s.At(i)
			Expect(h[0][0]).To(Equal(2.0), "slices after the append belong to trajectory B")
		}
	})
})

var _ = Describe("TrajectorySet", func() {
	It("grows trajectories and slices together", func() {
		set, err := dataset.NewTrajectorySet(nil, 0, 1, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.Size()).To(Equal(0))
		Expect(set.Slices().Len()).To(Equal(0))

		set.Append(rampTrajectory(1, 5))
		Expect(set.Size()).To(Equal(1))
		Expect(set.Slices().Len()).To(Equal(4))

		set.Append(rampTrajectory(2, 5))
		Expect(set.Size()).To(Equal(2))
		Expect(set.Slices().Len()).To(Equal(8))
	})
})
