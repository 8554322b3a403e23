package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/craftsim/internal/analysis"
	"github.com/san-kum/craftsim/internal/automation"
	"github.com/san-kum/craftsim/internal/config"
	"github.com/san-kum/craftsim/internal/export"
	"github.com/san-kum/craftsim/internal/metrics"
	"github.com/san-kum/craftsim/internal/optim"
	"github.com/san-kum/craftsim/internal/scenario"
	"github.com/san-kum/craftsim/internal/sim"
	"github.com/san-kum/craftsim/internal/storage"
	"github.com/san-kum/craftsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	parallel   bool
	numRuns    int
	craftName  string
	kpMin      float64
	kpMax      float64
	kpSteps    int
	svgOut     string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

var presetInfo = map[string]string{
	"shuttle":   "lone forward burn at the thruster limit",
	"circuit":   "two crafts patrolling a waypoint ring",
	"asteroids": "patrol through a seeded asteroid field",
	"duel":      "interceptor and wingman chase a patrol",
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "craftsim",
		Short:         "spacecraft engine and steering simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".craftsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario headless and store its telemetry",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().IntVar(&numRuns, "runs", 1, "number of seeded runs (ensemble when > 1)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the telemetry of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of the velocity tracking error",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a scripted batch of scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset] [param]",
		Short: "sweep an engine parameter across every craft",
		Args:  cobra.ExactArgs(2),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 5000, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 30000, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 6, "number of values")
	sweepCmd.Flags().Float64Var(&duration, "time", 10, "duration")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render the top-down track of a stored run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  trackSVG,
	}
	svgCmd.Flags().StringVar(&svgOut, "out", "", "output file (stdout when empty)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "fly a scenario in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search the linear PID gain of one craft",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tune,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&craftName, "craft", "", "craft to tune (defaults to the tracked one)")
	tuneCmd.Flags().Float64Var(&kpMin, "kp-min", 200, "lowest kp")
	tuneCmd.Flags().Float64Var(&kpMax, "kp-max", 5000, "highest kp")
	tuneCmd.Flags().IntVar(&kpSteps, "kp-steps", 8, "number of kp values")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	compareCmd.Flags().Float64Var(&duration, "time", 10, "duration")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %-10s %s\n", p, presetInfo[p])
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, batchCmd, sweepCmd, svgCmd, liveCmd, tuneCmd, compareCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4, verlet)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "drive crafts concurrently")
}

func newLogger(w io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "craftsim",
	}), nil
}

// loadConfig reads the scenario from --config, or the named preset, and
// applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		name := "circuit"
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if numRuns > 1 {
		return runEnsemble(ctx, cfg, logger)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	scn, err := scenario.Build(cfg, logger)
	if err != nil {
		return err
	}
	simulator := scn.Simulator()
	for _, m := range metrics.Standard() {
		simulator.AddMetric(m)
	}

	logger.Info("running scenario", "name", cfg.Name, "crafts", len(scn.Crafts), "duration", cfg.Duration, "dt", cfg.Dt)
	start := time.Now()

	result, err := simulator.Run(ctx, scn.SimConfig())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	tracked := ""
	if c, ok := scn.World.Craft(result.Tracked); ok {
		tracked = c.Name
	}
	runID, err := st.Save(storage.RunMetadata{
		Scenario:   cfg.Name,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Tracked:    tracked,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	printMetrics(result.Metrics)
	return nil
}

func runEnsemble(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	ens := sim.NewEnsemble(scenario.Builder(cfg, logger), metrics.Standard, numRuns, cfg.Seed)

	simCfg := sim.DefaultConfig()
	simCfg.Dt = cfg.Dt
	simCfg.Duration = cfg.Duration
	simCfg.Parallel = cfg.Parallel

	logger.Info("running ensemble", "name", cfg.Name, "runs", numRuns)
	results, err := ens.Run(ctx, simCfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	names := metricNames(results[0].Metrics)
	fmt.Fprintln(w, "SEED\t"+strings.ToUpper(strings.Join(names, "\t")))
	for i, r := range results {
		row := []string{fmt.Sprint(cfg.Seed + int64(i))}
		for _, n := range names {
			row = append(row, fmt.Sprintf("%.4f", r.Metrics[n]))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func metricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printMetrics(m map[string]float64) {
	fmt.Println("\nmetrics:")
	for _, name := range metricNames(m) {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tINTEG\tTRACKED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Tracked,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s (%s)\n", meta.Scenario, meta.Tracked)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		value   func(sim.Sample) float64
	}{
		{"speed (m/s)", func(s sim.Sample) float64 { return s.Velocity.Len() }},
		{"forward input (local z)", func(s sim.Sample) float64 { return s.Input[2] }},
		{"forward velocity (local z)", func(s sim.Sample) float64 { return s.LocalVelocity[2] }},
		{"forward flame (local z)", func(s sim.Sample) float64 { return s.LinearFlame[2] }},
		{"angular flame |a|", func(s sim.Sample) float64 { return s.AngularFlame.Len() }},
	}

	for _, sr := range series {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = sr.value(s)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%d samples, dt=%.4fs)\n\n", meta.ID, len(samples), meta.Dt)
	fmt.Printf("%-6s  %-14s  %-12s\n", "axis", "dominant_hz", "magnitude")
	for i, p := range analysis.TrackingOscillation(samples, meta.Dt) {
		fmt.Printf("%-6s  %14.4f  %12.4f\n", []string{"x", "y", "z"}[i], p.Frequency, p.Magnitude)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunBatch(ctx, b, st, logger)
	for i, r := range results {
		fmt.Printf("step %d: %s steps=%d %s\n", i+1, r.Scenario, r.Result.StepsTaken, r.RunID)
		printMetrics(r.Result.Metrics)
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	// Several commands share the duration variable, so read this command's flag.
	sweepTime, err := cmd.Flags().GetFloat64("time")
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.EngineSweep{
		Preset:   args[0],
		Param:    args[1],
		ParamMin: sweepMin,
		ParamMax: sweepMax,
		NumSteps: sweepSteps,
		Duration: sweepTime,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(args[1])+"\tMEAN_SPEED\tTRACKING_ERROR\tSTABILITY")
	for _, r := range results {
		if r.Diverged {
			fmt.Fprintf(w, "%.4f\tdiverged\t\t\n", r.ParamValue)
			continue
		}
		fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.4f\n", r.ParamValue,
			r.Metrics["mean_speed"], r.Metrics["tracking_error"], r.Metrics["stability"])
	}
	return w.Flush()
}

func trackSVG(cmd *cobra.Command, args []string) error {
	samples, err := storage.New(dataDir).LoadSamples(args[0])
	if err != nil {
		return err
	}
	svg := export.TrackToSVG(samples, 800, 800, "#00ffcc")
	if svg == "" {
		return fmt.Errorf("not enough samples to draw")
	}
	if svgOut == "" {
		_, err = fmt.Println(svg)
		return err
	}
	return os.WriteFile(svgOut, []byte(svg), 0644)
}

func runLive(cmd *cobra.Command, args []string) error {
	// Logging to the terminal would tear the view.
	logger := log.New(io.Discard)

	open := func(name string) (viz.Model, error) {
		return viz.NewModel(func() (*scenario.Scenario, error) {
			cfg, err := loadConfig(cmd, []string{name})
			if err != nil {
				return nil, err
			}
			return scenario.Build(cfg, logger)
		})
	}

	var m tea.Model
	if len(args) == 0 && configFile == "" {
		m = viz.NewPicker(config.ListPresets(), presetInfo, open)
	} else {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		live, err := open(name)
		if err != nil {
			return err
		}
		m = live
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func tune(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	name := craftName
	if name == "" {
		for _, cc := range cfg.Crafts {
			if cc.Track {
				name = cc.Name
				break
			}
		}
	}
	if name == "" && len(cfg.Crafts) > 0 {
		name = cfg.Crafts[0].Name
	}

	ctx, cancel := signalContext()
	defer cancel()

	grid := optim.NewGridSearch([]string{"kp"}, [][]float64{optim.Linspace(kpMin, kpMax, kpSteps)})
	logger.Info("tuning", "scenario", cfg.Name, "craft", name, "candidates", kpSteps)

	best, val, err := grid.Search(ctx, optim.LinearPIDObjective(cfg, name, logger), "tracking_error")
	if err != nil {
		return err
	}
	fmt.Printf("best kp for %s: %.2f (tracking error %.4f m/s)\n", name, best["kp"], val)
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	logger := log.New(io.Discard)
	dt, err := cmd.Flags().GetFloat64("dt")
	if err != nil {
		return err
	}
	duration, err := cmd.Flags().GetFloat64("time")
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators for %s (dt=%.4f, duration=%.1fs)\n\n", args[0], dt, duration)
	fmt.Printf("%-12s  %-12s  %-14s  %-12s\n", "integrator", "mean_speed", "tracking_err", "time_ms")
	fmt.Println(strings.Repeat("-", 56))

	for _, intName := range args[1:] {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", args[0])
		}
		cfg.Integrator = intName
		cfg.Dt = dt
		cfg.Duration = duration

		scn, err := scenario.Build(cfg, logger)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", intName, err)
			continue
		}
		simulator := scn.Simulator()
		for _, m := range metrics.Standard() {
			simulator.AddMetric(m)
		}

		start := time.Now()
		result, err := simulator.Run(context.Background(), scn.SimConfig())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", intName, err)
			continue
		}

		fmt.Printf("%-12s  %12.4f  %14.4f  %12.2f\n", intName,
			result.Metrics["mean_speed"], result.Metrics["tracking_error"], float64(elapsed.Microseconds())/1000)
	}
	return nil
}
