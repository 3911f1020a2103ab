package main

import (
	"context"
	"io"

	"github.com/dd0wney/cluso-diffraction/pkg/archive"
	"github.com/dd0wney/cluso-diffraction/pkg/config"
	"github.com/dd0wney/cluso-diffraction/pkg/diffraction"
	"github.com/dd0wney/cluso-diffraction/pkg/loader"
	"github.com/dd0wney/cluso-diffraction/pkg/logging"
	"github.com/dd0wney/cluso-diffraction/pkg/metrics"
	"github.com/dd0wney/cluso-diffraction/pkg/report"
)

// runAudit loads the graph, audits the poles and renders the result
func runAudit(ctx context.Context, cfg *config.Config, opts cliOptions, stdout, stderr io.Writer) error {
	logger := logging.NewZapLogger(stderr, logging.ParseLevel(cfg.Output.LogLevel))
	defer logger.Sync()

	reg := metrics.NewRegistry()
	if cfg.Output.MetricsFile != "" {
		defer func() {
			if err := reg.WriteTextfile(cfg.Output.MetricsFile); err != nil {
				logger.Warn("failed to write metrics", logging.Path(cfg.Output.MetricsFile), logging.Error(err))
			}
		}()
	}

	renderer, err := report.New(cfg.Output.Format, report.Options{Top: opts.top, Quiet: cfg.Output.Quiet})
	if err != nil {
		return err
	}

	timer := logging.StartTimer(logger, "graph loaded", logging.Path(cfg.Graph))
	g, err := loader.Load(cfg.Graph, cfg.GraphOptions())
	if err != nil {
		return err
	}
	timer.End()
	logger.Debug("graph summary",
		logging.Int("nodes", g.Len()),
		logging.Int("edges", g.EdgeCount()),
	)

	auditOpts, err := cfg.AuditOptions()
	if err != nil {
		return err
	}
	auditor, err := diffraction.NewAuditor(g, auditOpts, logger, reg)
	if err != nil {
		return err
	}

	res, err := auditor.Run(ctx, diffraction.Request{A: opts.poleA, B: opts.poleB})
	if err != nil {
		return err
	}

	if err := renderer.Render(stdout, res); err != nil {
		return err
	}

	if cfg.Archive.URL != "" {
		archiveResult(ctx, cfg.Archive.URL, res, logger)
	}
	return nil
}

// archiveResult stores the full report. Archive failures are logged and do
// not change the exit code.
func archiveResult(ctx context.Context, url string, res *diffraction.AuditResult, logger logging.Logger) {
	store, err := archive.Open(ctx, url)
	if err != nil {
		logger.Error("failed to open archive", logging.Error(err))
		return
	}
	defer store.Close()

	rec := archive.NewRecord(report.NewDocument(res, 0))
	if err := store.Save(ctx, rec); err != nil {
		logger.Error("failed to archive audit", logging.RunID(rec.RunID), logging.Error(err))
		return
	}
	logger.Info("audit archived", logging.RunID(rec.RunID))
}
