package integrators

import (
	"github.com/san-kum/trajstore/internal/sim"
	"github.com/san-kum/trajstore/internal/traj"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x traj.State, t float64, dt float64) traj.State {
	dx := dyn.Derivative(x, t)
	result := make(traj.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
