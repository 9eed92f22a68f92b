package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cr3bp/internal/config"
	"github.com/san-kum/cr3bp/internal/physics"
	"github.com/san-kum/cr3bp/internal/propagate"
	"github.com/san-kum/cr3bp/internal/trajectory"
	"github.com/san-kum/cr3bp/internal/viz"
)

var (
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	summaryValue = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

func runPropagate(cmd *cobra.Command, args []string) error {
	var extra []propagate.Option
	if partial {
		extra = append(extra, propagate.WithPartialOnFailure(true))
	}
	cfg, res, err := run(cmd, extra...)
	if res == nil {
		return err
	}

	switch format {
	case "csv":
		if werr := trajectory.WriteCSV(os.Stdout, res.Rows); werr != nil {
			return werr
		}
	case "json":
		data := trajectory.ExportData{
			Mu:        cfg.Mu,
			Span:      cfg.Span,
			Tolerance: cfg.Tolerance,
			Rows:      res.Rows,
			Metrics:   res.Metrics(),
		}
		if werr := trajectory.WriteJSON(os.Stdout, data); werr != nil {
			return werr
		}
	case "table":
		if werr := trajectory.WriteTable(os.Stdout, res.Rows); werr != nil {
			return werr
		}
		printSummary(os.Stderr, res)
	default:
		return fmt.Errorf("unknown format %q (want table, csv or json)", format)
	}
	return err
}

func printSummary(w io.Writer, res *propagate.Result) {
	line := func(label string, value any) {
		fmt.Fprintln(w, summaryLabel.Render(label)+summaryValue.Render(fmt.Sprint(value)))
	}
	fmt.Fprintln(w)
	line("accepted steps", res.Stats.Accepted)
	line("rejected steps", res.Stats.Rejected)
	line("evaluations", res.Stats.Evaluations)
	line("step range", fmt.Sprintf("[%.3g, %.3g]", res.Stats.MinAccepted, res.Stats.MaxAccepted))
	line("jacobi drift", fmt.Sprintf("%.3e", res.Jacobi.MaxDrift))
	line("closest approach", fmt.Sprintf("%.6g", res.ClosestApproach))
	if res.Partial {
		line("status", "partial")
	}
}

func runPlot(cmd *cobra.Command, args []string) error {
	_, res, err := run(cmd)
	if err != nil {
		return err
	}
	for _, name := range components {
		chart, err := viz.PlotComponent(res.Rows, name, plotWidth, plotHeight)
		if err != nil {
			return err
		}
		fmt.Println(chart)
		fmt.Println()
	}
	return nil
}

func runSVG(cmd *cobra.Command, args []string) error {
	cfg, res, err := run(cmd)
	if err != nil {
		return err
	}
	p1, p2 := physics.NewCR3BP(cfg.Mu).Primaries()
	markers := []trajectory.Point{{X: p1[0], Y: p1[1]}, {X: p2[0], Y: p2[1]}}
	track := trajectory.Projection(res.Rows, 1, 2)
	return trajectory.WriteSVG(os.Stdout, track, markers, svgSize, svgSize, "#00aaff")
}

func runJacobi(cmd *cobra.Command, args []string) error {
	cfg, res, err := run(cmd, propagate.WithInitialState(true))
	if err != nil {
		return err
	}
	fmt.Printf("mu: %g\n", cfg.Mu)
	fmt.Printf("C0: %.15g\n", res.Jacobi.Initial)
	fmt.Printf("C(t1): %.15g\n", res.Jacobi.Final)
	fmt.Printf("max |C-C0|: %.3e (tol %.1e)\n\n", res.Jacobi.MaxDrift, cfg.Tolerance)

	chart, err := viz.PlotJacobi(res.Rows, cfg.Mu, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(chart)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(tolerances) == 0 {
		return errors.New("--tolerances is empty")
	}

	reqs := make([]propagate.Request, len(tolerances))
	for i, tol := range tolerances {
		reqs[i] = cfg.Request()
		reqs[i].Tolerance = tol
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := newService(cfg).Batch(ctx, reqs, workers)
	if err != nil {
		return err
	}

	fmt.Printf("tolerance sweep (mu=%g, span=[%g, %g])\n\n", cfg.Mu, cfg.Span[0], cfg.Span[1])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOL\tACCEPTED\tREJECTED\tEVALS\tFINAL X\tFINAL Y\tJACOBI DRIFT")
	for i, res := range results {
		m := res.Matrix()
		n, _ := m.Dims()
		final := mat.Row(nil, n-1, m)
		fmt.Fprintf(w, "%.0e\t%d\t%d\t%d\t%.12f\t%.12f\t%.2e\n",
			tolerances[i], res.Stats.Accepted, res.Stats.Rejected, res.Stats.Evaluations,
			final[1], final[2], res.Jacobi.MaxDrift)
	}
	return w.Flush()
}

func runPresets(cmd *cobra.Command, args []string) error {
	systems := config.ListSystems()
	if len(args) == 1 {
		systems = args[:1]
	}
	for _, system := range systems {
		names := config.ListPresets(system)
		if len(names) == 0 {
			fmt.Printf("no presets for system: %s\n", system)
			continue
		}
		fmt.Printf("%s:\n", system)
		for _, name := range names {
			p := config.GetPreset(system, name)
			fmt.Printf("  %-12s mu=%-14g span=[%g, %g]\n", name, p.Mu, p.Span[0], p.Span[1])
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := cfg.Request()
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rec := viz.NewProgressRecorder(ctx)
	go func() {
		res, err := newService(cfg, propagate.WithObserver(rec)).Propagate(ctx, req)
		rec.Finish(res, err)
	}()

	title := fmt.Sprintf("cr3bp mu=%g", cfg.Mu)
	model := viz.NewLiveModel(title, req, rec.Updates(), cancel).WithFit(fit)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(viz.LiveModel); ok && m.Done() {
		return m.Err()
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s exists (use --force to overwrite)", path)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Request().Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
