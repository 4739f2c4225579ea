package dataset_test

import (
	"context"
	"fmt"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajstore/internal/config"
	"github.com/san-kum/trajstore/internal/dataset"
	"github.com/san-kum/trajstore/internal/fstore"
	"github.com/san-kum/trajstore/internal/sim"
	"github.com/san-kum/trajstore/internal/statespace"
	"github.com/san-kum/trajstore/internal/traj"
)

// seedStorage writes trajectories [start, start+n) into root's data dir,
// standing in for a prior run or an external writer. Each trajectory is a
// ramp carrying its own index so set membership can be traced.
func seedStorage(root string, start, n, length int) {
	st := fstore.New(root)
	Expect(st.EnsureLayout()).To(Succeed())
	for i := start; i < start+n; i++ {
		Expect(st.SaveTrajectory(i, rampTrajectory(float64(i), length))).To(Succeed())
	}
}

func dynamicConfig(root string, minimum int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage = root
	cfg.Seed = 7
	cfg.DynamicMinimum = &minimum
	return cfg
}

func removeTrajectory(st *fstore.Store, i int) error {
	return os.Remove(st.TrajectoryPath(i))
}

// trajID recovers the seeded index of a trajectory.
func trajID(t traj.Trajectory) int {
	return int(t[0][0])
}

func setIDs(s *dataset.TrajectorySet) map[int]bool {
	ids := make(map[int]bool)
	for _, t := range s.Trajectories() {
		ids[trajID(t)] = true
	}
	return ids
}

// stubSystem satisfies the system contract with deterministic trajectories
// seeded from the sampler's initial condition.
type stubSystem struct {
	space   statespace.Space
	sampler sim.StateSampler
	samples int
	failAt  int
}

func (s *stubSystem) Space() statespace.Space               { return s.space }
func (s *stubSystem) SetStateSampler(sampler sim.StateSampler) { s.sampler = sampler }

func (s *stubSystem) SampleTrajectory(length int) (traj.Trajectory, traj.State, error) {
	s.samples++
	if s.failAt > 0 && s.samples >= s.failAt {
		return nil, nil, fmt.Errorf("simulation diverged")
	}
	x0 := s.sampler.Sample()
	t := make(traj.Trajectory, length)
	for i := range t {
		t[i] = traj.State{x0[0], float64(i)}
	}
	return t, t[length-1].Clone(), nil
}

func generationConfig(population int) *config.GenerationConfig {
	return &config.GenerationConfig{
		Population:    population,
		TrajLen:       12,
		X0:            []float64{0, 0},
		Sampler:       config.SamplerUniform,
		SamplerRanges: []float64{0, 0},
		Noiser:        config.NoiserGaussian,
		StaticNoise:   []float64{0, 0},
		DynamicNoise:  []float64{0, 0},
	}
}

var _ = Describe("Manager", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("initial split", func() {
		It("partitions 100 trajectories as 50/25/25 pairwise disjoint", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 100, 12)

			m, err := dataset.New(ctx, nil, dynamicConfig(root, 100))
			Expect(err).NotTo(HaveOccurred())

			train, valid, test, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(train.Size()).To(Equal(50))
			Expect(valid.Size()).To(Equal(25))
			Expect(test.Size()).To(Equal(25))

			trainIDs, validIDs, testIDs := setIDs(train), setIDs(valid), setIDs(test)
			union := make(map[int]bool)
			for id := range trainIDs {
				Expect(validIDs).NotTo(HaveKey(id))
				Expect(testIDs).NotTo(HaveKey(id))
				union[id] = true
			}
			for id := range validIDs {
				Expect(testIDs).NotTo(HaveKey(id))
				union[id] = true
			}
			for id := range testIDs {
				union[id] = true
			}
			Expect(union).To(HaveLen(100))
		})

		It("clamps the test block when rounding over-allocates", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 10, 12)

			cfg := dynamicConfig(root, 10)
			m, err := dataset.New(ctx, nil, cfg)
			Expect(err).NotTo(HaveOccurred())

			train, valid, test, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			// round(5)=5, round(2.5)=3, test clamped to 10-5-3=2.
			Expect(train.Size()).To(Equal(5))
			Expect(valid.Size()).To(Equal(3))
			Expect(test.Size()).To(Equal(2))
		})

		It("degrades instead of panicking when the fractions over-allocate", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 10, 12)

			cfg := dynamicConfig(root, 10)
			cfg.TrainFraction = 0.9
			cfg.ValidFraction = 0.9
			cfg.TestFraction = 0.2

			m, err := dataset.New(ctx, nil, cfg)
			Expect(err).NotTo(HaveOccurred())

			train, valid, test, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			// round(9)=9 for train, valid gets the single leftover and
			// the test block is squeezed out entirely.
			Expect(train.Size()).To(Equal(9))
			Expect(valid.Size()).To(Equal(1))
			Expect(test.Size()).To(Equal(0))

			trainIDs, validIDs := setIDs(train), setIDs(valid)
			for id := range trainIDs {
				Expect(validIDs).NotTo(HaveKey(id))
			}
			Expect(len(trainIDs) + len(validIDs)).To(Equal(10))
		})

		It("derives slices for every assigned trajectory", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 10, 12)

			m, err := dataset.New(ctx, nil, dynamicConfig(root, 10))
			Expect(err).NotTo(HaveOccurred())

			train, _, _, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			// Default windows: t_skip=0, t_history=1, t_prediction=1,
			// so each length-12 trajectory yields 11 pairs.
			Expect(train.Slices().Len()).To(Equal(train.Size() * 11))
		})
	})

	Describe("dynamic growth", func() {
		It("distributes exactly the delta and leaves prior entries untouched", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 100, 12)

			m, err := dataset.New(ctx, nil, dynamicConfig(root, 100))
			Expect(err).NotTo(HaveOccurred())

			train, valid, test, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())

			beforeTrain := append([]traj.Trajectory(nil), train.Trajectories()...)
			beforeValid := append([]traj.Trajectory(nil), valid.Trajectories()...)
			beforeTest := append([]traj.Trajectory(nil), test.Trajectories()...)
			beforeSlices := train.Slices().Len()

			seedStorage(root, 100, 30, 12)

			train2, valid2, test2, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(train2).To(BeIdenticalTo(train))

			grown := (train2.Size() - len(beforeTrain)) +
				(valid2.Size() - len(beforeValid)) +
				(test2.Size() - len(beforeTest))
			Expect(grown).To(Equal(30))
			// round(15)=15, round(7.5)=8 for valid, test takes the tail.
			Expect(train2.Size()).To(Equal(65))
			Expect(valid2.Size()).To(Equal(33))
			Expect(test2.Size()).To(Equal(32))

			for i, t := range beforeTrain {
				Expect(train2.Trajectories()[i]).To(Equal(t))
			}
			for i, t := range beforeValid {
				Expect(valid2.Trajectories()[i]).To(Equal(t))
			}
			for i, t := range beforeTest {
				Expect(test2.Trajectories()[i]).To(Equal(t))
			}
			Expect(train.Slices().Len()).To(BeNumerically(">", beforeSlices))

			// New assignments come only from the new index range and stay
			// disjoint across sets.
			newIDs := make(map[int]int)
			for _, s := range []*dataset.TrajectorySet{train2, valid2, test2} {
				for _, t := range s.Trajectories() {
					if trajID(t) >= 100 {
						newIDs[trajID(t)]++
					}
				}
			}
			Expect(newIDs).To(HaveLen(30))
			for id, n := range newIDs {
				Expect(n).To(Equal(1), "trajectory %d assigned to multiple sets", id)
			}
		})

		It("is a no-op when the on-disk count is unchanged", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 20, 12)

			m, err := dataset.New(ctx, nil, dynamicConfig(root, 20))
			Expect(err).NotTo(HaveOccurred())

			train, _, _, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			size := train.Size()

			train2, _, _, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(train2.Size()).To(Equal(size))
		})

		It("rejects a shrinking population", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 20, 12)

			m, err := dataset.New(ctx, nil, dynamicConfig(root, 20))
			Expect(err).NotTo(HaveOccurred())

			st := fstore.New(root)
			for i := 15; i < 20; i++ {
				Expect(removeTrajectory(st, i)).To(Succeed())
			}

			_, _, _, err = m.Split(ctx)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("generation mode", func() {
		newGenConfig := func(root string, population int) *config.Config {
			cfg := config.DefaultConfig()
			cfg.Storage = root
			cfg.Seed = 3
			cfg.Generation = generationConfig(population)
			return cfg
		}

		It("generates exactly the configured population", func() {
			root := GinkgoT().TempDir()
			system := &stubSystem{space: statespace.Space{NQ: 1, NV: 1}}

			m, err := dataset.New(ctx, system, newGenConfig(root, 10))
			Expect(err).NotTo(HaveOccurred())

			n, err := m.Store().TrajectoryCount()
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(10))
			Expect(m.OnDiskCount()).To(Equal(10))
		})

		It("stops without sampling when the target is already met", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 10, 12)
			system := &stubSystem{space: statespace.Space{NQ: 1, NV: 1}}

			_, err := dataset.New(ctx, system, newGenConfig(root, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(system.samples).To(Equal(0))

			n, err := fstore.New(root).TrajectoryCount()
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(10))
		})

		It("never overshoots when an external writer races it", func() {
			root := GinkgoT().TempDir()
			seedStorage(root, 0, 7, 12)
			system := &stubSystem{space: statespace.Space{NQ: 1, NV: 1}}

			m, err := dataset.New(ctx, system, newGenConfig(root, 10))
			Expect(err).NotTo(HaveOccurred())

			n, err := m.Store().TrajectoryCount()
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(10))
		})

		It("propagates simulation failure and keeps partial progress off the split", func() {
			root := GinkgoT().TempDir()
			system := &stubSystem{space: statespace.Space{NQ: 1, NV: 1}, failAt: 3}

			_, err := dataset.New(ctx, system, newGenConfig(root, 10))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("simulation diverged"))
		})

		It("requires a system", func() {
			root := GinkgoT().TempDir()
			_, err := dataset.New(ctx, nil, newGenConfig(root, 5))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("import mode", func() {
		importConfig := func(root, src string) *config.Config {
			cfg := config.DefaultConfig()
			cfg.Storage = root
			cfg.Seed = 5
			cfg.ImportDir = src
			return cfg
		}

		It("copies the source corpus into storage", func() {
			root := GinkgoT().TempDir()
			src := GinkgoT().TempDir()
			for i := 0; i < 6; i++ {
				Expect(traj.Save(fmt.Sprintf("%s/%d%s", src, i, traj.Extension),
					rampTrajectory(float64(i), 12))).To(Succeed())
			}

			m, err := dataset.New(ctx, nil, importConfig(root, src))
			Expect(err).NotTo(HaveOccurred())

			n, err := m.Store().TrajectoryCount()
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(6))

			train, valid, test, err := m.Split(ctx)
			Expect(err).NotTo(HaveOccurred())
			// round(3)=3, round(1.5)=2, test clamped to 6-3-2=1.
			Expect(train.Size()).To(Equal(3))
			Expect(valid.Size()).To(Equal(2))
			Expect(test.Size()).To(Equal(1))
		})
	})

	Describe("configuration dispatch", func() {
		It("rejects zero acquisition modes", func() {
			cfg := config.DefaultConfig()
			cfg.Storage = GinkgoT().TempDir()
			_, err := dataset.New(ctx, nil, cfg)
			Expect(err).To(HaveOccurred())
		})

		It("rejects multiple acquisition modes", func() {
			minimum := 5
			cfg := config.DefaultConfig()
			cfg.Storage = GinkgoT().TempDir()
			cfg.ImportDir = GinkgoT().TempDir()
			cfg.DynamicMinimum = &minimum
			_, err := dataset.New(ctx, nil, cfg)
			Expect(err).To(HaveOccurred())
		})
	})
})
