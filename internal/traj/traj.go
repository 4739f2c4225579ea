package traj

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Trajectory is an ordered sequence of states over discrete time steps.
// Trajectories are immutable once generated; callers that need to modify
// one must work on a Clone.
type Trajectory []State

func (t Trajectory) Len() int {
	return len(t)
}

func (t Trajectory) Dim() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

func (t Trajectory) Clone() Trajectory {
	c := make(Trajectory, len(t))
	for i, s := range t {
		c[i] = s.Clone()
	}
	return c
}
