package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"cigate/internal/aggregate"
	"cigate/internal/check"
	"cigate/internal/gate/app"
	"cigate/internal/gate/config"
	"cigate/internal/gate/server"
	"cigate/internal/llm"
	"cigate/internal/proposal"
	"cigate/internal/reconcile"
	"cigate/internal/runner"
)

func main() {
	mode := flag.String("mode", "run", "run | aggregate | serve")
	runID := flag.String("run-id", "", "gate run id (defaults to a fresh id in run mode)")
	port := flag.String("port", "", "override server port (serve mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	stores, err := app.InitStores(cfg)
	if err != nil {
		log.Fatalf("init stores: %v", err)
	}
	defer func() {
		if stores.History != nil {
			_ = stores.History.Close()
		}
	}()

	switch strings.TrimSpace(*mode) {
	case "run":
		os.Exit(runGate(cfg, stores, *runID, true))
	case "aggregate":
		if strings.TrimSpace(*runID) == "" {
			log.Fatalf("aggregate mode requires -run-id")
		}
		os.Exit(runGate(cfg, stores, *runID, false))
	case "serve":
		if err := serve(cfg, stores, *port); err != nil {
			log.Fatalf("serve: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

// runGate executes the full gate: optionally the three check runners
// (parallel, fan-in barrier), then a single sequential aggregation pass.
// The exit code keeps the substantive verdict and the reporting
// machinery's own health distinct: a false verdict always exits 1, and a
// reporting failure on a passing change exits 2.
func runGate(cfg *config.Config, stores *app.Stores, runID string, execute bool) int {
	ctx := context.Background()
	if strings.TrimSpace(runID) == "" {
		runID = uuid.NewString()
	}

	if execute {
		r := runner.New(stores.Artifact, cfg.WorkDir)
		checks := []runner.Check{
			{Kind: check.Format, Command: cfg.Checks.FormatCommand},
			{Kind: check.Lint, Command: cfg.Checks.LintCommand},
			{Kind: check.Test, Command: cfg.Checks.TestCommand, CoverageFile: cfg.Checks.CoverageFile},
		}
		for _, err := range r.RunAll(ctx, runID, checks) {
			// Partial uploads are handled by the absence fallback downstream.
			log.Printf("runner: %v", err)
		}
	}

	client, err := proposal.NewHTTPClient(proposal.HTTPConfig{
		BaseURL: cfg.Proposal.BaseURL,
		Token:   cfg.Proposal.Token,
		Repo:    cfg.Proposal.Repo,
		Number:  cfg.Proposal.Number,
	})
	if err != nil {
		log.Printf("proposal client unavailable: %v", err)
		return 2
	}

	opts := []aggregate.Option{}
	if summarizer, err := llm.NewGeminiFromEnv(ctx); err != nil {
		log.Printf("summarizer disabled: %v", err)
	} else if summarizer != nil {
		opts = append(opts, aggregate.WithSummarizer(summarizer))
	}
	if stores.History != nil {
		opts = append(opts, aggregate.WithHistory(stores.History))
	}

	agg := aggregate.New(
		check.NewLoaderWithFallback(stores.Artifact, cfg.Checks.MissingArtifactText),
		client,
		reconcile.Labels{Passed: cfg.Labels.Passed, Failed: cfg.Labels.Failed},
		opts...,
	)
	outcome, err := agg.Run(ctx, runID)
	if err != nil {
		log.Printf("gate run %s: reporting failed: %v", runID, err)
	} else {
		for _, res := range outcome.Results {
			log.Printf("gate run %s: %s passed=%v", runID, res.Kind, res.Passed)
		}
		if outcome.Passed {
			log.Printf("gate run %s: passed", runID)
		} else {
			log.Printf("gate run %s: FAILED", runID)
		}
	}
	return gateExitCode(outcome, err)
}

// gateExitCode keeps the substantive verdict and the reporting machinery's
// health apart: 0 is a clean pass, 1 means at least one check failed, and
// 2 means the machinery itself broke. A run that never derived any results
// has no verdict to report, so it exits 2, not 1.
func gateExitCode(outcome aggregate.Outcome, err error) int {
	if err != nil {
		if len(outcome.Results) == 0 || outcome.Passed {
			return 2
		}
		return 1
	}
	if !outcome.Passed {
		return 1
	}
	return 0
}

func serve(cfg *config.Config, stores *app.Stores, portOverride string) error {
	port := cfg.Port
	if p := strings.TrimSpace(portOverride); p != "" {
		if !strings.HasPrefix(p, ":") {
			p = ":" + p
		}
		port = p
	}

	deps := server.Deps{
		Loader:    check.NewLoaderWithFallback(stores.Artifact, cfg.Checks.MissingArtifactText),
		Artifacts: stores.Artifact,
		History:   stores.History,
	}
	if client, err := proposal.NewHTTPClient(proposal.HTTPConfig{
		BaseURL: cfg.Proposal.BaseURL,
		Token:   cfg.Proposal.Token,
		Repo:    cfg.Proposal.Repo,
		Number:  cfg.Proposal.Number,
	}); err != nil {
		log.Printf("proposal label endpoint disabled: %v", err)
	} else {
		deps.Proposal = client
	}

	srv := server.New(port, server.NewMux(deps))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("Server exiting")
	return nil
}
