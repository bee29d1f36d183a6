package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluxsaver/internal/analysis"
	"github.com/san-kum/fluxsaver/internal/automation"
	"github.com/san-kum/fluxsaver/internal/bench"
	"github.com/san-kum/fluxsaver/internal/config"
	"github.com/san-kum/fluxsaver/internal/export"
	"github.com/san-kum/fluxsaver/internal/metrics"
	"github.com/san-kum/fluxsaver/internal/platform"
	"github.com/san-kum/fluxsaver/internal/saver"
	"github.com/san-kum/fluxsaver/internal/storage"
	"github.com/san-kum/fluxsaver/internal/tui"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	logToFile  bool
	preset     string
	watch      bool
	// preview window
	width        int
	height       int
	previewWatch bool
	// bench
	benchDuration time.Duration
	refreshHz     float64
	jitter        time.Duration
	driver        string
	liveView      bool
	saveSession   bool
	// settings
	saveSettings bool
	exportPath   string
	svgPath      string
	// sweep
	minHz      float64
	maxHz      float64
	sweepSteps int
	sweepTime  time.Duration

	cfg     *config.Config
	logFile *os.File
)

func init() {
	// glfw must own the main thread.
	runtime.LockOSThread()
}

func main() {
	rootCmd := &cobra.Command{
		Use:               "fluxsaver",
		Short:             "fluid flow screensaver",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaver(platform.Fullscreen)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fluxsaver", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml, default <data>/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level from the config")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "also write logs to <data>/fluxsaver.log")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "apply a color preset")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "restart the engine when the config file changes")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the screensaver fullscreen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaver(platform.Fullscreen)
		},
	}
	runCmd.Flags().BoolVar(&watch, "watch", false, "restart the engine when the config file changes")

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "run the screensaver in a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			watch = previewWatch
			return runSaver(platform.Preview)
		},
	}
	previewCmd.Flags().IntVar(&width, "width", 1280, "window width")
	previewCmd.Flags().IntVar(&height, "height", 720, "window height")
	previewCmd.Flags().BoolVar(&previewWatch, "watch", true, "restart the engine when the config file changes")

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "print the effective settings",
		RunE:  showSettings,
	}
	settingsCmd.Flags().BoolVar(&saveSettings, "save", false, "write the effective settings to the config file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list color presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure the render loop headlessly",
		RunE:  runBench,
	}
	benchCmd.Flags().DurationVar(&benchDuration, "time", 5*time.Second, "duration (0 runs until quit with --live)")
	benchCmd.Flags().Float64Var(&refreshHz, "hz", config.DefaultRefreshHz, "synthetic refresh rate")
	benchCmd.Flags().DurationVar(&jitter, "jitter", 0, "synthetic refresh jitter")
	benchCmd.Flags().StringVar(&driver, "driver", "null", "engine driver")
	benchCmd.Flags().BoolVar(&liveView, "live", false, "show a live dashboard")
	benchCmd.Flags().BoolVar(&saveSession, "save", true, "store the session")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "list stored sessions",
		RunE:  listSessions,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [session_id]",
		Short: "plot frame intervals of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSession,
	}

	exportCmd := &cobra.Command{
		Use:   "export [session_id]",
		Short: "export a session to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSession,
	}
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "output file (default <id>.json)")
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "also write a frame interval chart to this SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [session_id]",
		Short: "frame pacing analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeSession,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of benches",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&saveSession, "save", true, "store each session")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "bench across a range of refresh rates",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&minHz, "min", 30, "lowest refresh rate")
	sweepCmd.Flags().Float64Var(&maxHz, "max", 240, "highest refresh rate")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of rates")
	sweepCmd.Flags().DurationVar(&sweepTime, "time", 2*time.Second, "duration per rate")
	sweepCmd.Flags().DurationVar(&jitter, "jitter", 0, "synthetic refresh jitter")
	sweepCmd.Flags().StringVar(&driver, "driver", "null", "engine driver")

	rootCmd.AddCommand(runCmd, previewCmd, settingsCmd, presetsCmd, benchCmd, sessionsCmd, plotCmd, exportCmd, analyzeCmd, scenarioCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and installs the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if dataDir, err = homedir.Expand(dataDir); err != nil {
		return err
	}
	if configFile, err = homedir.Expand(configFile); err != nil {
		return err
	}

	if configFile == "" {
		cfg = config.LoadOrDefault(dataDir)
	} else {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Flux = p.Flux
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if logToFile {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(dataDir, "fluxsaver.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSaver(mode platform.Mode) error {
	ctx, cancel := signalContext()
	defer cancel()

	rec := metrics.NewRecorder(240, metrics.Standard(config.DefaultRefreshHz)...)
	opts := saver.Options{
		Config:   cfg,
		Mode:     mode,
		Width:    width,
		Height:   height,
		Recorder: rec,
	}
	if watch {
		opts.ConfigPath = settingsPath()
	}
	err := saver.Run(ctx, opts)
	if err != nil {
		return err
	}
	v := rec.Values()
	slog.Info("session finished",
		"frames", rec.Frames(),
		"interval_ms", v["frame_interval_ms"],
		"jitter_ms", v["jitter_ms"],
		"failures", v["step_failures"])
	return nil
}

func settingsPath() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(dataDir, config.FileName)
}

func showSettings(cmd *cobra.Command, args []string) error {
	if saveSettings {
		path := settingsPath()
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("saved: %s\n", path)
		return nil
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts := bench.Options{Config: cfg, Driver: driver, RefreshHz: refreshHz, Jitter: jitter}

	var res bench.Result
	if liveView {
		b, err := bench.New(opts)
		if err != nil {
			return err
		}
		if err := b.Start(); err != nil {
			b.Stop()
			return err
		}
		state := func() string { return b.Host().State().String() }
		if err := tui.RunBench(driver, b.Recorder(), state, benchDuration); err != nil {
			b.Stop()
			return err
		}
		res = b.Stop()
	} else {
		if benchDuration <= 0 {
			return fmt.Errorf("bench needs a positive --time without --live")
		}
		fmt.Printf("benchmarking %s at %.0fHz for %v\n\n", driver, refreshHz, benchDuration)
		var err error
		res, err = bench.Run(ctx, opts, benchDuration)
		if err != nil {
			return err
		}
	}

	printSummary(res)

	if saveSession {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(res.Meta, res.Times)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved: %s\n", id)
	}
	return nil
}

func printSummary(res bench.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAMES\tTIME\tINTERVAL\tJITTER\tDROPPED\tFAILURES")
	fmt.Fprintf(w, "%d\t%.2fs\t%.3fms\t%.3fms\t%.0f\t%.0f\n",
		res.Meta.Frames,
		res.Meta.Duration,
		res.Meta.Metrics["frame_interval_ms"],
		res.Meta.Metrics["jitter_ms"],
		res.Meta.Metrics["dropped_frames"],
		res.Meta.Metrics["step_failures"],
	)
	w.Flush()

	if iv := intervals(res.Times); len(iv) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(iv,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption("frame interval (ms)"),
		))
	}
}

func listSessions(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	sessions, err := st.List()
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("no sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDRIVER\tSOURCE\tTIME\tDURATION\tFRAMES\tPOLICY")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%d\t%s\n",
			s.ID,
			s.Driver,
			s.Source,
			s.Timestamp.Format("2006-01-02 15:04:05"),
			s.Duration,
			s.Frames,
			s.TimePolicy,
		)
	}
	return w.Flush()
}

func plotSession(cmd *cobra.Command, args []string) error {
	id := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(id)
	if err != nil {
		return err
	}
	times, err := st.LoadFrames(id)
	if err != nil {
		return err
	}

	iv := intervals(times)
	if len(iv) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("session: %s\n", meta.ID)
	fmt.Printf("driver: %s (%s, %.0fHz)\n", meta.Driver, meta.TimePolicy, meta.RefreshHz)
	fmt.Printf("frames: %d\n\n", len(times))

	fmt.Println(asciigraph.Plot(iv,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("frame interval (ms)"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(times,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("engine time (ms)"),
	))
	return nil
}

func exportSession(cmd *cobra.Command, args []string) error {
	id := args[0]
	out := exportPath
	if out == "" {
		out = id + ".json"
	}
	st := storage.New(dataDir)
	if err := st.Export(id, out); err != nil {
		return err
	}
	fmt.Printf("exported: %s\n", out)

	if svgPath != "" {
		meta, err := st.Load(id)
		if err != nil {
			return err
		}
		times, err := st.LoadFrames(id)
		if err != nil {
			return err
		}
		ref := 0.0
		if meta.RefreshHz > 0 {
			ref = 1000 / meta.RefreshHz
		}
		if err := export.WriteSVG(svgPath, intervals(times), 800, 200, ref); err != nil {
			return err
		}
		fmt.Printf("chart: %s\n", svgPath)
	}
	return nil
}

func analyzeSession(cmd *cobra.Command, args []string) error {
	id := args[0]

	times, err := storage.New(dataDir).LoadFrames(id)
	if err != nil {
		return err
	}
	iv := intervals(times)
	if len(iv) < 4 {
		return fmt.Errorf("need at least 4 intervals for analysis, got %d", len(iv))
	}

	d := analysis.Percentiles(iv)
	fmt.Printf("session: %s\n", id)
	fmt.Printf("intervals: %d\n\n", len(iv))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "P50\tP95\tP99\tMAX")
	fmt.Fprintf(w, "%.3fms\t%.3fms\t%.3fms\t%.3fms\n", d.P50, d.P95, d.P99, d.Max)
	w.Flush()

	period, strength := analysis.DominantPeriod(iv)
	if strength > 0.2 {
		fmt.Printf("\nrecurring hitch: every %.1f frames (%.0f%% of spectral energy)\n", period, strength*100)
	} else {
		fmt.Println("\nno recurring hitch")
	}

	ps := analysis.PowerSpectrum(iv)
	if len(ps) > 2 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(ps[1:],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("interval spectrum (cycles per frame)"),
		))
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(ctx, scenario, cfg)
	for i, res := range results {
		fmt.Printf("step %d: %s %s %.0fHz\n", i+1, res.Meta.Driver, res.Meta.TimePolicy, res.Meta.RefreshHz)
		printSummary(res)
		fmt.Println()
		if saveSession {
			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			id, err := st.Save(res.Meta, res.Times)
			if err != nil {
				return err
			}
			fmt.Printf("saved: %s\n\n", id)
		}
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.RefreshSweep{
		Driver:   driver,
		MinHz:    minHz,
		MaxHz:    maxHz,
		NumSteps: sweepSteps,
		Duration: sweepTime.Seconds(),
		JitterMs: float64(jitter) / float64(time.Millisecond),
	}
	results, err := automation.RunSweep(ctx, sweep, cfg)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HZ\tFRAMES\tINTERVAL\tJITTER\tDROPPED")
	for _, r := range results {
		fmt.Fprintf(w, "%.1f\t%d\t%.3fms\t%.3fms\t%.0f\n", r.RefreshHz, r.Frames, r.IntervalMs, r.JitterMs, r.Dropped)
	}
	w.Flush()
	return err
}

func intervals(times []float64) []float64 {
	if len(times) < 2 {
		return nil
	}
	out := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		out[i-1] = times[i] - times[i-1]
	}
	return out
}
