package dataset

import (
	"fmt"

	"github.com/san-kum/trajstore/internal/traj"
)

// Slicer turns raw trajectories into fixed-geometry (history, future) slice
// pairs for training. Pairs are indexed globally across all appended
// trajectories, in append order and increasing anchor time; the index space
// is append-only, so indices already handed out stay valid.
type Slicer struct {
	tSkip       int
	tHistory    int
	tPrediction int

	histories []traj.Trajectory
	futures   []traj.Trajectory
}

func NewSlicer(tSkip, tHistory, tPrediction int) (*Slicer, error) {
	if tHistory < 1 {
		return nil, fmt.Errorf("t_history must be >= 1, got %d", tHistory)
	}
	if tPrediction < 1 {
		return nil, fmt.Errorf("t_prediction must be >= 1, got %d", tPrediction)
	}
	if tSkip < 0 {
		return nil, fmt.Errorf("t_skip must be >= 0, got %d", tSkip)
	}
	if tSkip+1 < tHistory {
		return nil, fmt.Errorf("t_skip+1 must be >= t_history (%d+1 < %d)", tSkip, tHistory)
	}
	return &Slicer{
		tSkip:       tSkip,
		tHistory:    tHistory,
		tPrediction: tPrediction,
	}, nil
}

// Append derives every valid slice pair from t. Anchors run over
// [tSkip, len(t)-tPrediction); a trajectory too short for any anchor
// contributes zero pairs. The windows alias t's backing arrays, relying on
// trajectories being immutable after generation.
func (s *Slicer) Append(t traj.Trajectory) {
	first := s.tSkip
	last := t.Len() - s.tPrediction
	for i := first; i < last; i++ {
		s.histories = append(s.histories, t[i+1-s.tHistory:i+1])
		s.futures = append(s.futures, t[i+1:i+1+s.tPrediction])
	}
}

// Len reports the number of slice pairs derived so far.
func (s *Slicer) Len() int {
	return len(s.histories)
}

// At returns the slice pair at global index i.
func (s *Slicer) At(i int) (history, future traj.Trajectory) {
	return s.histories[i], s.futures[i]
}
