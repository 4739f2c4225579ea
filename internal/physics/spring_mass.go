package physics

import "github.com/san-kum/trajstore/internal/traj"

// SpringMass is a damped harmonic oscillator with state [x, v].
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Mass:      1.0,
		Stiffness: 4.0,
		Damping:   0.2,
	}
}

func (s *SpringMass) StateDim() int {
	return 2
}

func (s *SpringMass) Derivative(x traj.State, t float64) traj.State {
	pos := x[0]
	vel := x[1]
	acc := (-s.Stiffness*pos - s.Damping*vel) / s.Mass
	return traj.State{vel, acc}
}

func (s *SpringMass) Energy(x traj.State) float64 {
	return 0.5*s.Mass*x[1]*x[1] + 0.5*s.Stiffness*x[0]*x[0]
}
