package physics

import (
	"math"

	"github.com/san-kum/trajstore/internal/traj"
)

// Pendulum is a damped passive pendulum with state [theta, omega].
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) StateDim() int {
	return 2
}

func (p *Pendulum) Derivative(x traj.State, t float64) traj.State {
	theta := x[0]
	omega := x[1]
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) /
		(p.Mass * p.Length * p.Length)
	return traj.State{omega, alpha}
}

func (p *Pendulum) Energy(x traj.State) float64 {
	v := p.Length * x[1]
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(x[0]))
	return ke + pe
}
