package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/cr3bp/internal/config"
	"github.com/san-kum/cr3bp/internal/propagate"
)

var (
	configFile string
	preset     string
	verbose    bool

	initial        []float64
	span           []float64
	mu             float64
	tolerance      float64
	step           float64
	absTol         float64
	relTol         float64
	minStep        float64
	maxStep        float64
	maxSteps       int
	includeInitial bool
	partial        bool
	timeout        time.Duration

	format     string
	components []string
	plotWidth  int
	plotHeight int
	svgSize    int

	tolerances []float64
	workers    int

	fit       bool
	overwrite bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "cr3bp",
		Short:        "circular restricted three-body propagator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log propagation events to stderr")

	propagateCmd := &cobra.Command{
		Use:   "propagate",
		Short: "propagate an initial state and print the trajectory",
		RunE:  runPropagate,
	}
	addRunFlags(propagateCmd)
	propagateCmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
	propagateCmd.Flags().BoolVar(&partial, "partial", false, "print the rows computed before a failure")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "chart state components against the step index",
		RunE:  runPlot,
	}
	addRunFlags(plotCmd)
	plotCmd.Flags().StringSliceVar(&components, "component", []string{"x", "y"}, "components to chart")
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "chart width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "chart height")

	svgCmd := &cobra.Command{
		Use:   "svg",
		Short: "write the x-y track in the rotating frame as SVG",
		RunE:  runSVG,
	}
	addRunFlags(svgCmd)
	svgCmd.Flags().IntVar(&svgSize, "size", 800, "image size in pixels")

	jacobiCmd := &cobra.Command{
		Use:   "jacobi",
		Short: "report Jacobi constant drift",
		RunE:  runJacobi,
	}
	addRunFlags(jacobiCmd)
	jacobiCmd.Flags().IntVar(&plotWidth, "width", 70, "chart width")
	jacobiCmd.Flags().IntVar(&plotHeight, "height", 10, "chart height")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "propagate the same state at several tolerances",
		RunE:  runCompare,
	}
	addRunFlags(compareCmd)
	compareCmd.Flags().Float64SliceVar(&tolerances, "tolerances", []float64{1e-6, 1e-8, 1e-10, 1e-12}, "tolerances to compare")
	compareCmd.Flags().IntVar(&workers, "workers", 0, "concurrent propagations (0 = all)")

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "follow a propagation in the terminal",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().BoolVar(&fit, "fit", false, "zoom the track view onto the trajectory")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage config files",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the resolved config (defaults, preset and flags) as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigInit,
	}
	addRunFlags(initCmd)
	initCmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)

	rootCmd.AddCommand(propagateCmd, plotCmd, svgCmd, jacobiCmd, compareCmd, presetsCmd, liveCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "preset as system/name, e.g. earth_moon/demo")
	f.Float64SliceVar(&initial, "ic", def.InitialState, "initial state x,y,z,vx,vy,vz")
	f.Float64SliceVar(&span, "span", def.Span[:], "time span t0,t1")
	f.Float64Var(&mu, "mu", def.Mu, "mass parameter")
	f.Float64Var(&tolerance, "tol", def.Tolerance, "local error tolerance")
	f.Float64Var(&step, "step", def.Step, "initial step size")
	f.Float64Var(&absTol, "abs-tol", 0, "absolute tolerance (defaults to --tol)")
	f.Float64Var(&relTol, "rel-tol", 0, "relative tolerance (defaults to --tol)")
	f.Float64Var(&minStep, "min-step", 0, "minimum step magnitude")
	f.Float64Var(&maxStep, "max-step", 0, "maximum step magnitude (0 = unbounded)")
	f.IntVar(&maxSteps, "max-steps", 0, "maximum accepted steps (0 = unbounded)")
	f.BoolVar(&includeInitial, "include-initial", false, "emit the initial state as the first row")
	f.DurationVar(&timeout, "timeout", 0, "abort after this long (0 = no limit)")
}

// loadConfig resolves defaults, then the config file or preset, then any
// flag set explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	switch {
	case configFile != "" && preset != "":
		return nil, fmt.Errorf("--config and --preset are mutually exclusive")
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case preset != "":
		system, name, ok := strings.Cut(preset, "/")
		if !ok {
			system, name = "earth_moon", preset
		}
		p := config.GetPreset(system, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available for %s: %v)", preset, system, config.ListPresets(system))
		}
		cfg = p
	}

	f := cmd.Flags()
	if f.Changed("ic") {
		cfg.InitialState = initial
	}
	if f.Changed("span") {
		if len(span) != 2 {
			return nil, fmt.Errorf("--span needs 2 values, got %d", len(span))
		}
		cfg.Span = [2]float64{span[0], span[1]}
	}
	if f.Changed("mu") {
		cfg.Mu = mu
	}
	if f.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if f.Changed("step") {
		cfg.Step = step
	}
	if f.Changed("abs-tol") {
		cfg.Control.AbsTol = absTol
	}
	if f.Changed("rel-tol") {
		cfg.Control.RelTol = relTol
	}
	if f.Changed("min-step") {
		cfg.Control.MinStep = minStep
	}
	if f.Changed("max-step") {
		cfg.Control.MaxStep = maxStep
	}
	if f.Changed("max-steps") {
		cfg.Control.MaxSteps = maxSteps
	}
	if f.Changed("include-initial") {
		cfg.IncludeInitial = includeInitial
	}
	if f.Changed("timeout") {
		cfg.Timeout = timeout
	}
	return cfg, nil
}

func newLogger() log.Logger {
	if !verbose {
		return log.NewNopLogger()
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.AllowDebug())
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

// newService builds a service carrying the logger and the config options.
func newService(cfg *config.Config, extra ...propagate.Option) *propagate.Service {
	opts := append([]propagate.Option{propagate.WithLogger(newLogger())}, cfg.Options()...)
	return propagate.NewService(append(opts, extra...)...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// run propagates the resolved config once.
func run(cmd *cobra.Command, extra ...propagate.Option) (*config.Config, *propagate.Result, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := signalContext()
	defer cancel()

	res, err := newService(cfg, extra...).Propagate(ctx, cfg.Request())
	return cfg, res, err
}
