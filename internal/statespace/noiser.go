package statespace

import (
	"math/rand"

	"github.com/san-kum/trajstore/internal/traj"
)

// Noisers perturb whole trajectories. With independent=false a single draw is
// shared by every time step (static noise); with independent=true each step
// gets a fresh draw (dynamic white noise). Dimensions beyond the space or
// beyond the ranges pass through untouched.

type Noiser interface {
	Noise(t traj.Trajectory, ranges []float64, independent bool) traj.Trajectory
}

type GaussianWhiteNoiser struct {
	space Space
	rng   *rand.Rand
}

func NewGaussianWhiteNoiser(space Space, rng *rand.Rand) *GaussianWhiteNoiser {
	return &GaussianWhiteNoiser{space: space, rng: rng}
}

func (n *GaussianWhiteNoiser) Noise(t traj.Trajectory, ranges []float64, independent bool) traj.Trajectory {
	return applyNoise(t, n.space, ranges, independent, n.rng.NormFloat64)
}

type UniformWhiteNoiser struct {
	space Space
	rng   *rand.Rand
}

func NewUniformWhiteNoiser(space Space, rng *rand.Rand) *UniformWhiteNoiser {
	return &UniformWhiteNoiser{space: space, rng: rng}
}

func (n *UniformWhiteNoiser) Noise(t traj.Trajectory, ranges []float64, independent bool) traj.Trajectory {
	return applyNoise(t, n.space, ranges, independent, func() float64 {
		return 2*n.rng.Float64() - 1
	})
}

func applyNoise(t traj.Trajectory, space Space, ranges []float64, independent bool, draw func() float64) traj.Trajectory {
	out := t.Clone()
	if len(out) == 0 {
		return out
	}

	dim := min(out.Dim(), space.Dim())
	shared := make([]float64, dim)
	for j := range shared {
		shared[j] = draw()
	}

	for i := range out {
		for j := 0; j < dim && j < len(ranges); j++ {
			d := shared[j]
			if independent {
				d = draw()
			}
			out[i][j] += d * ranges[j]
		}
	}
	return out
}
