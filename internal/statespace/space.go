package statespace

import (
	"fmt"

	"github.com/san-kum/trajstore/internal/traj"
)

// Space describes a state layout [q; v] with nq configuration coordinates
// followed by nv velocity coordinates.
type Space struct {
	NQ int
	NV int
}

func (s Space) Dim() int {
	return s.NQ + s.NV
}

func (s Space) Validate() error {
	if s.NQ < 0 || s.NV < 0 {
		return fmt.Errorf("invalid space dims nq=%d nv=%d", s.NQ, s.NV)
	}
	if s.Dim() == 0 {
		return fmt.Errorf("empty state space")
	}
	return nil
}

// ProjectDerivative returns a copy of t in which the velocity block of every
// step i >= 1 is replaced by the finite difference (q_i - q_{i-1}) / dt,
// keeping velocities consistent with the configuration sequence after noising.
// Step 0 is left as-is.
func (s Space) ProjectDerivative(t traj.Trajectory, dt float64) traj.Trajectory {
	out := t.Clone()
	for i := 1; i < len(out); i++ {
		for j := 0; j < s.NV && j < s.NQ; j++ {
			out[i][s.NQ+j] = (out[i][j] - out[i-1][j]) / dt
		}
	}
	return out
}
