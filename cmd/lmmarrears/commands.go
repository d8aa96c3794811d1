package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/lmmarrears/internal/config"
	"github.com/seenimoa/lmmarrears/internal/logging"
	"github.com/seenimoa/lmmarrears/internal/metrics"
	"github.com/seenimoa/lmmarrears/internal/pricing"
	"github.com/seenimoa/lmmarrears/internal/recorder"
	"github.com/seenimoa/lmmarrears/internal/report"
	"github.com/seenimoa/lmmarrears/pkg/models"
	"github.com/seenimoa/lmmarrears/pkg/utils"
)

// --- Price Command ---

func newPriceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Simulate every in-arrears period and compare with the analytic price",
		Long: `Simulate every in-arrears period under the configured measures and
compare with the convexity-adjusted analytic price.

Examples:
  lmmarrears price
  lmmarrears price --measure terminal --paths 50000 --seed 7
  lmmarrears price --dynamics normal --format csv > normal.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyPriceFlags(cmd, a.cfg); err != nil {
				return err
			}
			setup, err := pricing.NewSetup(a.cfg)
			if err != nil {
				return err
			}

			logger, closeLog, err := logging.New(a.cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog.Close()

			rec, err := openRecorder(a.cfg, logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			m := metrics.New(a.cfg.Metrics.Namespace)
			engine := pricing.NewEngine(setup,
				pricing.WithLogger(logger),
				pricing.WithObserver(m),
				pricing.WithRecorder(rec))

			comparison, runErr := engine.Compare(cmd.Context(), a.cfg.Measures())

			if path := a.cfg.Metrics.TextfilePath; path != "" {
				if err := m.WriteTextfile(path); err != nil {
					logger.Warn("metrics not written", "error", err)
				}
			}

			// A cancelled or failed measure still renders whatever completed.
			if comparison != nil {
				if err := renderComparison(cmd.OutOrStdout(), comparison, a.cfg.Report); err != nil {
					return errors.Join(runErr, err)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringSlice("measure", nil, "measures to simulate (terminal, spot)")
	cmd.Flags().String("dynamics", "", "forward dynamics (lognormal, normal)")
	cmd.Flags().Int("paths", 0, "number of Monte Carlo paths")
	cmd.Flags().Int64("seed", 0, "random seed")
	cmd.Flags().Int("workers", 0, "worker goroutines (0 = one per CPU)")
	cmd.Flags().String("format", "", "report format (text, json, csv, html)")
	return cmd
}

// applyPriceFlags copies explicitly set flags over the loaded configuration.
func applyPriceFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("measure") {
		measures, err := flags.GetStringSlice("measure")
		if err != nil {
			return err
		}
		cfg.Model.Measures = measures
	}
	if flags.Changed("dynamics") {
		cfg.Model.Dynamics, _ = flags.GetString("dynamics")
	}
	if flags.Changed("paths") {
		cfg.Simulation.Paths, _ = flags.GetInt("paths")
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("format") {
		cfg.Report.Format, _ = flags.GetString("format")
	}
	return nil
}

// --- Analytic Command ---

func newAnalyticCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytic",
		Short: "Print the convexity-adjusted analytic price of every period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format, _ := cmd.Flags().GetString("format"); format != "" {
				a.cfg.Report.Format = format
			}
			setup, err := pricing.NewSetup(a.cfg)
			if err != nil {
				return err
			}
			rows, err := pricing.NewEngine(setup).Analytic()
			if err != nil {
				return err
			}
			return renderComparison(cmd.OutOrStdout(), &models.Comparison{
				Dynamics: setup.Dynamics,
				Notional: a.cfg.Product.Notional,
				Seed:     a.cfg.Simulation.Seed,
				Rows:     rows,
			}, a.cfg.Report)
		},
	}
	cmd.Flags().String("format", "", "report format (text, json, csv, html)")
	return cmd
}

// --- Config Command ---

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and environment overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dump, err := config.Dump(a.cfg)
			if err != nil {
				return err
			}
			fingerprint, err := config.Fingerprint(a.cfg)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "═══════════════════════════════════════")
			fmt.Fprintln(out, "  lmmarrears Effective Configuration")
			fmt.Fprintln(out, "═══════════════════════════════════════")
			fmt.Fprintf(out, "  Version:     %s (%s)\n", version, commit)
			fmt.Fprintf(out, "  Fingerprint: %s\n", fingerprint)
			if err := a.cfg.Validate(); err != nil {
				fmt.Fprintf(out, "  Invalid:     %s\n", strings.ReplaceAll(err.Error(), "\n", "\n               "))
			}
			fmt.Fprintln(out)
			out.Write(dump)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "  Environment overrides:")
			for _, s := range config.CheckOverrides() {
				status := "not set"
				if s.Source == config.SourceEnv {
					status = fmt.Sprintf("set (%s)", s.Value)
				}
				fmt.Fprintf(out, "    %-40s %s\n", s.EnvVar+":", status)
			}
			fmt.Fprintln(out, "═══════════════════════════════════════")
			return nil
		},
	}
}

// --- Runs Command ---

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded comparison runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Recorder.SQLitePath == "" {
				return fmt.Errorf("%w: recorder.sqlite_path is not set", models.ErrConfiguration)
			}
			limit, _ := cmd.Flags().GetInt("limit")

			rec, err := recorder.NewSQLiteRecorder(a.cfg.Recorder.SQLitePath, logging.Discard())
			if err != nil {
				return err
			}
			defer rec.Close()

			runs, err := rec.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no recorded runs")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-16s  %-9s  %8s  %7s\n", "RUN", "CREATED", "FINGERPRINT", "DYNAMICS", "SEED", "PERIODS")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-20s  %-16s  %-9s  %8d  %7d\n",
					r.RunID, r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Fingerprint, r.Dynamics, r.Seed, r.Periods)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to list")
	return cmd
}

// ────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────

func openRecorder(cfg *config.Config, logger *slog.Logger) (recorder.Recorder, error) {
	if cfg.Recorder.SQLitePath == "" {
		return recorder.NewNoopRecorder(), nil
	}
	return recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath, logger)
}

func renderComparison(w io.Writer, c *models.Comparison, rc config.ReportConfig) error {
	format, err := report.ParseFormat(rc.Format)
	if err != nil {
		return err
	}
	opts := report.DefaultOptions()
	opts.Format = format
	opts.Number = utils.NumberFormat{Decimals: rc.Decimals, Grouping: utils.Grouping(strings.ToLower(rc.Grouping))}
	return report.Render(w, c, opts)
}
