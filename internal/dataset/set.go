package dataset

import "github.com/san-kum/trajstore/internal/traj"

// TrajectorySet pairs a growable list of raw trajectories with the slicer
// indexing them. Both grow together and only by appending, so slice indices
// held by a training loop survive growth.
type TrajectorySet struct {
	trajectories []traj.Trajectory
	slices       *Slicer
}

func NewTrajectorySet(trajectories []traj.Trajectory, tSkip, tHistory, tPrediction int) (*TrajectorySet, error) {
	slicer, err := NewSlicer(tSkip, tHistory, tPrediction)
	if err != nil {
		return nil, err
	}
	set := &TrajectorySet{slices: slicer}
	for _, t := range trajectories {
		set.Append(t)
	}
	return set, nil
}

// Append adds one trajectory and its derived slice pairs.
func (s *TrajectorySet) Append(t traj.Trajectory) {
	s.trajectories = append(s.trajectories, t)
	s.slices.Append(t)
}

// Trajectories returns the raw trajectory list. Callers must not mutate it.
func (s *TrajectorySet) Trajectories() []traj.Trajectory {
	return s.trajectories
}

// Slices returns the slice index over this set's trajectories.
func (s *TrajectorySet) Slices() *Slicer {
	return s.slices
}

func (s *TrajectorySet) Size() int {
	return len(s.trajectories)
}
