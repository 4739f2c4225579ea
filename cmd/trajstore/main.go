package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/trajstore/internal/config"
	"github.com/san-kum/trajstore/internal/dataset"
	"github.com/san-kum/trajstore/internal/fstore"
	"github.com/san-kum/trajstore/internal/integrators"
	"github.com/san-kum/trajstore/internal/physics"
	"github.com/san-kum/trajstore/internal/sim"
	"github.com/san-kum/trajstore/internal/statespace"
	"github.com/san-kum/trajstore/internal/tui"
)

var (
	configFile string
	storage    string
	seed       int64

	model      string
	integrator string
	population int
	trajLen    int
	dt         float64

	minCount int
	timeout  time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trajstore",
		Short: "trajectory dataset lifecycle manager",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "dataset config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&storage, "storage", "", "storage root (overrides config)")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default dataset config",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "generate trajectories by simulation and compute the split",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&model, "model", "pendulum", "dynamics model (pendulum, spring_mass)")
	generateCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4, euler)")
	generateCmd.Flags().IntVar(&population, "population", 0, "population target (overrides config)")
	generateCmd.Flags().IntVar(&trajLen, "traj-len", 0, "trajectory length (overrides config)")
	generateCmd.Flags().Float64Var(&dt, "dt", 0, "timestep (overrides config)")
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (overrides config)")

	importCmd := &cobra.Command{
		Use:   "import [source-dir]",
		Short: "import a trajectory corpus from another directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	waitCmd := &cobra.Command{
		Use:   "wait",
		Short: "block until an external writer reaches a population minimum",
		RunE:  runWait,
	}
	waitCmd.Flags().IntVar(&minCount, "min", 1, "minimum on-disk trajectory count")
	waitCmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "show storage layout and population",
		RunE:  runStatus,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "live view of dataset growth",
		RunE:  runWatch,
	}

	rootCmd.AddCommand(initCmd, generateCmd, importCmd, waitCmd, statusCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if storage != "" {
		cfg.Storage = storage
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	cfg.Generation = &config.GenerationConfig{
		Population:    128,
		TrajLen:       80,
		X0:            []float64{0.5, 0.0},
		Sampler:       config.SamplerUniform,
		SamplerRanges: []float64{0.3, 0.3},
		Noiser:        config.NoiserGaussian,
		StaticNoise:   []float64{0.01, 0.01},
		DynamicNoise:  []float64{0.002, 0.002},
	}
	if storage != "" {
		cfg.Storage = storage
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func buildSystem(cfg *config.Config) (sim.System, error) {
	var dyn sim.Dynamics
	switch model {
	case "pendulum":
		dyn = physics.NewPendulum()
	case "spring_mass":
		dyn = physics.NewSpringMass()
	default:
		return nil, fmt.Errorf("unknown model: %s", model)
	}

	var integ sim.Integrator
	switch integrator {
	case "rk4":
		integ = integrators.NewRK4()
	case "euler":
		integ = integrators.NewEuler()
	default:
		return nil, fmt.Errorf("unknown integrator: %s", integrator)
	}

	space := statespace.Space{NQ: 1, NV: 1}
	return sim.NewSystem(dyn, integ, space, cfg.Dt)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Generation == nil {
		cfg.Generation = &config.GenerationConfig{
			Sampler:       config.SamplerUniform,
			SamplerRanges: []float64{0.3, 0.3},
			Noiser:        config.NoiserGaussian,
			StaticNoise:   []float64{0.01, 0.01},
			DynamicNoise:  []float64{0.002, 0.002},
			X0:            []float64{0.5, 0.0},
			Population:    128,
			TrajLen:       80,
		}
	}
	cfg.ImportDir = ""
	cfg.DynamicMinimum = nil
	if population > 0 {
		cfg.Generation.Population = population
	}
	if trajLen > 0 {
		cfg.Generation.TrajLen = trajLen
	}
	if dt > 0 {
		cfg.Dt = dt
	}
	if seed != 0 {
		cfg.Seed = seed
	}

	system, err := buildSystem(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	m, err := dataset.New(ctx, system, cfg)
	if err != nil {
		return err
	}
	return printSplit(ctx, m)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Generation = nil
	cfg.DynamicMinimum = nil
	cfg.ImportDir = args[0]

	ctx, cancel := signalContext()
	defer cancel()

	m, err := dataset.New(ctx, nil, cfg)
	if err != nil {
		return err
	}
	return printSplit(ctx, m)
}

func runWait(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Generation = nil
	cfg.ImportDir = ""
	cfg.DynamicMinimum = &minCount

	ctx, cancel := signalContext()
	defer cancel()
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m, err := dataset.New(ctx, nil, cfg)
	if err != nil {
		return err
	}
	return printSplit(ctx, m)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st := fstore.New(cfg.Storage)
	n, err := st.TrajectoryCount()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "storage\t%s\n", st.Root())
	fmt.Fprintf(w, "data dir\t%s\n", st.DataDir())
	fmt.Fprintf(w, "trajectories\t%d\n", n)
	fmt.Fprintf(w, "fractions\t%.2f / %.2f / %.2f\n",
		cfg.TrainFraction, cfg.ValidFraction, cfg.TestFraction)
	fmt.Fprintf(w, "windows\tskip=%d history=%d prediction=%d\n",
		cfg.TSkip, cfg.THistory, cfg.TPrediction)
	return w.Flush()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

func printSplit(ctx context.Context, m *dataset.Manager) error {
	train, valid, test, err := m.Split(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "set\ttrajectories\tslices\n")
	fmt.Fprintf(w, "train\t%d\t%d\n", train.Size(), train.Slices().Len())
	fmt.Fprintf(w, "valid\t%d\t%d\n", valid.Size(), valid.Slices().Len())
	fmt.Fprintf(w, "test\t%d\t%d\n", test.Size(), test.Slices().Len())
	return w.Flush()
}
