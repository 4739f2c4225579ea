package sim

import (
	"github.com/san-kum/trajstore/internal/statespace"
	"github.com/san-kum/trajstore/internal/traj"
)

// Dynamics is a passive (uncontrolled) continuous-time system.
type Dynamics interface {
	Derivative(x traj.State, t float64) traj.State
	StateDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x traj.State, t float64, dt float64) traj.State
}

// StateSampler draws initial conditions for new trajectories.
type StateSampler interface {
	Sample() traj.State
}

// System is the contract through which trajectory data is produced.
// SampleTrajectory returns the state sequence of the requested length plus
// the carry state reached after the final step.
type System interface {
	Space() statespace.Space
	SetStateSampler(s StateSampler)
	SampleTrajectory(length int) (traj.Trajectory, traj.State, error)
}
