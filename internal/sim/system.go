package sim

import (
	"fmt"

	"github.com/san-kum/trajstore/internal/statespace"
	"github.com/san-kum/trajstore/internal/traj"
)

// SimSystem implements System by integrating a Dynamics forward in time.
type SimSystem struct {
	dyn     Dynamics
	integ   Integrator
	space   statespace.Space
	dt      float64
	sampler StateSampler
}

func NewSystem(dyn Dynamics, integ Integrator, space statespace.Space, dt float64) (*SimSystem, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %f", dt)
	}
	if dyn.StateDim() != space.Dim() {
		return nil, fmt.Errorf("dynamics dim %d does not match space dim %d",
			dyn.StateDim(), space.Dim())
	}
	return &SimSystem{dyn: dyn, integ: integ, space: space, dt: dt}, nil
}

func (s *SimSystem) Space() statespace.Space {
	return s.space
}

func (s *SimSystem) SetStateSampler(sampler StateSampler) {
	s.sampler = sampler
}

func (s *SimSystem) SampleTrajectory(length int) (traj.Trajectory, traj.State, error) {
	if length < 1 {
		return nil, nil, fmt.Errorf("trajectory length must be >= 1, got %d", length)
	}
	if s.sampler == nil {
		return nil, nil, fmt.Errorf("no state sampler set")
	}

	x := s.sampler.Sample()
	states := make(traj.Trajectory, 0, length)
	t := 0.0
	for i := 0; i < length; i++ {
		if !x.IsValid() {
			return nil, nil, fmt.Errorf("invalid state (NaN/Inf) at step %d, t=%.4f", i, t)
		}
		states = append(states, x.Clone())
		x = s.integ.Step(s.dyn, x, t, s.dt)
		t += s.dt
	}
	return states, x, nil
}
