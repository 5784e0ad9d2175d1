package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluxprobe/fluxprobe/internal/config"
	"github.com/fluxprobe/fluxprobe/internal/corpus"
	"github.com/fluxprobe/fluxprobe/internal/logging"
	"github.com/fluxprobe/fluxprobe/internal/report"
	"github.com/fluxprobe/fluxprobe/internal/runner"
	"github.com/fluxprobe/fluxprobe/internal/schema"
	"github.com/fluxprobe/fluxprobe/internal/ui"
)

const summaryWidth = 72

func runFuzz(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Output.LogLevel,
		Output:  cmd.ErrOrStderr(),
		LogFile: cfg.Output.LogFile,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := loadSchema(cfg.Target)
	if err != nil {
		return err
	}

	store, err := corpus.New(cfg.Output.CorpusDir)
	if err != nil {
		return err
	}

	r, err := runner.New(s, runnerConfig(cfg.Run),
		runner.WithLogger(logger),
		runner.WithCorpus(store),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !cfg.Output.Quiet {
		fmt.Fprintln(out, ui.RenderBanner(s.Name, s.Transport.Address(), r.Seed(), cfg.Run.DryRun))
		fmt.Fprintln(out)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, runErr := r.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logger.Warn("Run interrupted", slog.Int64("sent", stats.Sent))
		runErr = nil
	}

	rep := buildReport(s, cfg, stats, store)
	if cfg.Output.ReportFile != "" {
		if err := report.WriteFile(rep, cfg.Output.ReportFile); err != nil {
			logger.Error("Failed to write report", slog.String("error", err.Error()))
		} else {
			logger.Info("Report written", slog.String("path", cfg.Output.ReportFile))
		}
	}
	if !cfg.Output.Quiet {
		fmt.Fprintln(out, ui.NewSummaryView(summaryWidth).Render(rep))
	}
	return runErr
}

func runnerConfig(rc config.RunConfig) runner.Config {
	return runner.Config{
		Iterations:        rc.Iterations,
		MutationRate:      rc.MutationRate,
		MutationsPerFrame: rc.MutationsPerFrame,
		RecvTimeout:       rc.RecvTimeout,
		Seed:              rc.Seed,
		Delay:             rc.Delay,
		Workers:           rc.Workers,
		Rate:              rc.Rate,
		Operators:         rc.Mutators,
		DryRun:            rc.DryRun,
	}
}

func buildReport(s *schema.ProtocolSchema, cfg *config.Config, stats runner.Stats, store *corpus.Corpus) *report.Report {
	rep := report.NewReport("FluxProbe run", version)
	rep.Protocol = s.Name
	rep.Target = s.Transport.Address()
	rep.Transport = s.Transport.Type
	rep.Settings = report.Settings{
		Iterations:        cfg.Run.Iterations,
		MutationRate:      cfg.Run.MutationRate,
		MutationsPerFrame: cfg.Run.MutationsPerFrame,
		Workers:           cfg.Run.Workers,
		Rate:              cfg.Run.Rate,
		Seed:              stats.Seed,
		DryRun:            cfg.Run.DryRun,
	}
	rep.SetStatistics(report.Statistics{
		Sent:          stats.Sent,
		Valid:         stats.Valid,
		Mutated:       stats.Mutated,
		Responses:     stats.Responses,
		SendErrors:    stats.SendErrors,
		RecvErrors:    stats.RecvErrors,
		Anomalies:     stats.Anomalies,
		BytesSent:     stats.BytesSent,
		BytesReceived: stats.BytesReceived,
		Duration:      stats.Duration,
	})
	for _, f := range store.Findings() {
		rep.AddFinding(f)
	}
	return rep
}
