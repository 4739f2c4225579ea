package statespace

import (
	"math/rand"

	"github.com/san-kum/trajstore/internal/traj"
)

// Samplers draw initial conditions as perturbations centered on a nominal
// state x0, with one perturbation scale per state dimension. Only the first
// space.Dim() dimensions are perturbed; trailing entries of x0 pass through.

type UniformSampler struct {
	space  Space
	ranges []float64
	x0     traj.State
	rng    *rand.Rand
}

func NewUniformSampler(space Space, ranges []float64, x0 traj.State, rng *rand.Rand) *UniformSampler {
	return &UniformSampler{space: space, ranges: ranges, x0: x0, rng: rng}
}

func (s *UniformSampler) Sample() traj.State {
	x := s.x0.Clone()
	for i := 0; i < len(x) && i < s.space.Dim(); i++ {
		if i < len(s.ranges) {
			x[i] += (2*s.rng.Float64() - 1) * s.ranges[i]
		}
	}
	return x
}

type GaussianSampler struct {
	space  Space
	ranges []float64
	x0     traj.State
	rng    *rand.Rand
}

func NewGaussianSampler(space Space, ranges []float64, x0 traj.State, rng *rand.Rand) *GaussianSampler {
	return &GaussianSampler{space: space, ranges: ranges, x0: x0, rng: rng}
}

func (s *GaussianSampler) Sample() traj.State {
	x := s.x0.Clone()
	for i := 0; i < len(x) && i < s.space.Dim(); i++ {
		if i < len(s.ranges) {
			x[i] += s.rng.NormFloat64() * s.ranges[i]
		}
	}
	return x
}
