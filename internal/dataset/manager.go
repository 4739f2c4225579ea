package dataset

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/trajstore/internal/config"
	"github.com/san-kum/trajstore/internal/fstore"
	"github.com/san-kum/trajstore/internal/sim"
	"github.com/san-kum/trajstore/internal/statespace"
	"github.com/san-kum/trajstore/internal/traj"
)

const (
	// generationChunk is the nominal batch size for population growth.
	generationChunk = 30
	// pollInterval is the coarse wait between on-disk count checks in
	// dynamic mode.
	pollInterval = time.Second
)

// Manager reconciles the three acquisition modes, materializes trajectories
// to the file store, and maintains the train/valid/test partition. One
// manager instance must be the only mutator of its sets; dynamic mode
// tolerates a separate process appending trajectory files, nothing more.
type Manager struct {
	system sim.System
	cfg    *config.Config
	store  *fstore.Store
	source config.Source
	rng    *rand.Rand

	// nOnDisk is the cached on-disk population; refreshed explicitly on
	// each split-growth decision, never in the background.
	nOnDisk int

	train *TrajectorySet
	valid *TrajectorySet
	test  *TrajectorySet
}

// New validates cfg, resolves its acquisition mode, runs that mode to
// completion (generation loop, bulk import, or blocking wait) and computes
// the initial split. The wait in dynamic mode is unbounded unless ctx
// carries a deadline or is cancelled.
func New(ctx context.Context, system sim.System, cfg *config.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src, err := cfg.Source()
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m := &Manager{
		system: system,
		cfg:    cfg,
		store:  fstore.New(cfg.Storage),
		source: src,
		rng:    rand.New(rand.NewSource(seed)),
	}
	if err := m.store.EnsureLayout(); err != nil {
		return nil, err
	}

	switch s := src.(type) {
	case config.Generate:
		if m.system == nil {
			return nil, fmt.Errorf("generation mode requires a system")
		}
		if err := m.generate(ctx, s.Config); err != nil {
			return nil, err
		}
	case config.Import:
		if err := m.store.Import(s.Dir); err != nil {
			return nil, err
		}
	case config.Dynamic:
		if err := m.waitForMinimum(ctx, s.Minimum); err != nil {
			return nil, err
		}
	}

	n, err := m.store.TrajectoryCount()
	if err != nil {
		return nil, err
	}
	m.nOnDisk = n

	if _, _, _, err := m.Split(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) Store() *fstore.Store {
	return m.store
}

// OnDiskCount is the manager's cached view of the population. It reflects
// the last dispatch or split-growth check, not the live directory.
func (m *Manager) OnDiskCount() int {
	return m.nOnDisk
}

// generate grows the on-disk population until it reaches the configured
// target. Batches are capped at generationChunk and at the remaining
// deficit; the count is re-read before every write commit so a concurrent
// external writer reaching the target first stops us without overshoot.
// Simulation errors abort generation; trajectories already written stay.
func (m *Manager) generate(ctx context.Context, gen config.GenerationConfig) error {
	nGenerated, err := m.store.TrajectoryCount()
	if err != nil {
		return err
	}

	for nGenerated < gen.Population {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := generationChunk
		if remaining := gen.Population - nGenerated; n > remaining {
			n = remaining
		}
		batch, err := m.generateBatch(gen, n)
		if err != nil {
			return err
		}

		nGenerated, err = m.store.TrajectoryCount()
		if err != nil {
			return err
		}
		if nGenerated >= gen.Population {
			break
		}
		if remaining := gen.Population - nGenerated; len(batch) > remaining {
			batch = batch[:remaining]
		}
		for i, t := range batch {
			if err := m.store.SaveTrajectory(nGenerated+i, t); err != nil {
				return err
			}
		}

		nGenerated, err = m.store.TrajectoryCount()
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) generateBatch(gen config.GenerationConfig, n int) ([]traj.Trajectory, error) {
	space := m.system.Space()
	sampler, err := newSampler(gen, space, m.rng)
	if err != nil {
		return nil, err
	}
	m.system.SetStateSampler(sampler)

	raw := make([]traj.Trajectory, 0, n)
	for i := 0; i < n; i++ {
		states, _, err := m.system.SampleTrajectory(gen.TrajLen)
		if err != nil {
			return nil, fmt.Errorf("sample trajectory: %w", err)
		}
		raw = append(raw, states)
	}
	return m.noisedTrajectories(raw, gen)
}

// noisedTrajectories applies the static (shared-draw) pass, then the dynamic
// (per-step) pass, then re-projects velocities against the configured dt.
func (m *Manager) noisedTrajectories(batch []traj.Trajectory, gen config.GenerationConfig) ([]traj.Trajectory, error) {
	space := m.system.Space()
	noiser, err := newNoiser(gen, space, m.rng)
	if err != nil {
		return nil, err
	}

	out := make([]traj.Trajectory, 0, len(batch))
	for _, t := range batch {
		disturbed := noiser.Noise(t, gen.StaticNoise, false)
		disturbed = noiser.Noise(disturbed, gen.DynamicNoise, true)
		out = append(out, space.ProjectDerivative(disturbed, m.cfg.Dt))
	}
	return out, nil
}

func (m *Manager) waitForMinimum(ctx context.Context, minimum int) error {
	n, err := m.store.TrajectoryCount()
	if err != nil {
		return err
	}
	if n >= minimum {
		return nil
	}

	log.Printf("waiting for minimum trajectory count (%d/%d)", n, minimum)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err = m.store.TrajectoryCount()
			if err != nil {
				return err
			}
			if n >= minimum {
				log.Printf("minimum trajectory count reached (%d)", n)
				return nil
			}
		}
	}
}

// Split returns the (train, valid, test) triple. The first call computes it
// from the recorded on-disk count; later calls are no-ops except in dynamic
// mode, where the count is re-read and any new trajectories are distributed
// across the existing sets. A trajectory assigned to a split never moves,
// and existing slice indices stay valid across growth.
func (m *Manager) Split(ctx context.Context) (train, valid, test *TrajectorySet, err error) {
	if m.train == nil {
		if err := m.initialSplit(ctx); err != nil {
			return nil, nil, nil, err
		}
	} else if _, ok := m.source.(config.Dynamic); ok {
		if err := m.growSplit(ctx); err != nil {
			return nil, nil, nil, err
		}
	}
	return m.train, m.valid, m.test, nil
}

func (m *Manager) initialSplit(ctx context.Context) error {
	cfg := m.cfg
	n := m.nOnDisk

	nTrain := fracCount(n, cfg.TrainFraction)
	nValid := fracCount(n, cfg.ValidFraction)
	nTest := fracCount(n, cfg.TestFraction)
	// Independent rounding can over-allocate; the test block absorbs it,
	// down to nothing when train and valid already cover the population.
	if spare := n - nTrain - nValid; nTest > spare {
		nTest = max(spare, 0)
	}

	selection, err := m.loadTrajectories(ctx, 0, n, nTrain+nValid+nTest)
	if err != nil {
		return err
	}

	// The selection is capped at the population, so the earlier blocks win
	// when the fractions over-allocate and later blocks shrink to fit.
	trainEnd := min(nTrain, len(selection))
	validEnd := min(nTrain+nValid, len(selection))

	trainTraj := selection[:trainEnd]
	validTraj := selection[trainEnd:validEnd]
	testTraj := selection[validEnd:]

	if m.train, err = m.newSet(trainTraj); err != nil {
		return err
	}
	if m.valid, err = m.newSet(validTraj); err != nil {
		return err
	}
	if m.test, err = m.newSet(testTraj); err != nil {
		return err
	}
	return nil
}

// growSplit distributes trajectories that appeared since the last check.
// Sizes are recomputed from the delta alone and the permutation is drawn
// over the new index range only, so earlier assignments are never revisited.
// Note the incremental test count is not clamped the way the initial one is;
// the selection is capped at the delta and the test block takes the tail.
func (m *Manager) growSplit(ctx context.Context) error {
	cfg := m.cfg
	newCount, err := m.store.TrajectoryCount()
	if err != nil {
		return err
	}
	if newCount == m.nOnDisk {
		return nil
	}
	if newCount < m.nOnDisk {
		return fmt.Errorf("on-disk trajectory count shrank from %d to %d; external writers must be append-only",
			m.nOnDisk, newCount)
	}

	delta := newCount - m.nOnDisk
	nTrain := fracCount(delta, cfg.TrainFraction)
	nValid := fracCount(delta, cfg.ValidFraction)
	nTest := fracCount(delta, cfg.TestFraction)

	selection, err := m.loadTrajectories(ctx, m.nOnDisk, newCount, nTrain+nValid+nTest)
	if err != nil {
		return err
	}
	m.nOnDisk = newCount

	trainEnd := min(nTrain, len(selection))
	validEnd := min(nTrain+nValid, len(selection))

	for _, t := range selection[:trainEnd] {
		m.train.Append(t)
	}
	for _, t := range selection[trainEnd:validEnd] {
		m.valid.Append(t)
	}
	for _, t := range selection[validEnd:] {
		m.test.Append(t)
	}
	return nil
}

// loadTrajectories draws a fresh uniform permutation of [begin, end), takes
// the first requested indices and loads those trajectories from the store.
func (m *Manager) loadTrajectories(ctx context.Context, begin, end, requested int) ([]traj.Trajectory, error) {
	if requested > end-begin {
		requested = end - begin
	}

	order := m.rng.Perm(end - begin)
	out := make([]traj.Trajectory, 0, requested)
	for _, idx := range order[:requested] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := m.store.LoadTrajectory(begin + idx)
		if err != nil {
			return nil, fmt.Errorf("load trajectory %d: %w", begin+idx, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *Manager) newSet(trajectories []traj.Trajectory) (*TrajectorySet, error) {
	return NewTrajectorySet(trajectories, m.cfg.TSkip, m.cfg.THistory, m.cfg.TPrediction)
}

func fracCount(n int, fraction float64) int {
	return int(math.Round(float64(n) * fraction))
}

func newSampler(gen config.GenerationConfig, space statespace.Space, rng *rand.Rand) (sim.StateSampler, error) {
	x0 := traj.State(gen.X0)
	switch gen.Sampler {
	case config.SamplerUniform:
		return statespace.NewUniformSampler(space, gen.SamplerRanges, x0, rng), nil
	case config.SamplerGaussian:
		return statespace.NewGaussianSampler(space, gen.SamplerRanges, x0, rng), nil
	default:
		return nil, fmt.Errorf("unknown sampler %q", gen.Sampler)
	}
}

func newNoiser(gen config.GenerationConfig, space statespace.Space, rng *rand.Rand) (statespace.Noiser, error) {
	switch gen.Noiser {
	case config.NoiserGaussian:
		return statespace.NewGaussianWhiteNoiser(space, rng), nil
	case config.NoiserUniform:
		return statespace.NewUniformWhiteNoiser(space, rng), nil
	default:
		return nil, fmt.Errorf("unknown noiser %q", gen.Noiser)
	}
}
