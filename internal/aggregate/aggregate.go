package aggregate

import (
	"context"
	"fmt"
	"log"

	"cigate/internal/check"
	"cigate/internal/history"
	"cigate/internal/llm"
	"cigate/internal/proposal"
	"cigate/internal/reconcile"
	"cigate/internal/report"
)

// Aggregator fans in the artifacts the three check runners left behind,
// renders a single report, posts it, and reconciles the proposal labels.
// It runs strictly sequentially; the only concurrency in the system is
// upstream, in the runners.
type Aggregator struct {
	loader     *check.Loader
	client     proposal.Client
	labels     reconcile.Labels
	summarizer llm.Summarizer
	history    *history.Store
}

// Option configures optional collaborators.
type Option func(*Aggregator)

func WithSummarizer(s llm.Summarizer) Option {
	return func(a *Aggregator) { a.summarizer = s }
}

func WithHistory(h *history.Store) Option {
	return func(a *Aggregator) { a.history = h }
}

func New(loader *check.Loader, client proposal.Client, labels reconcile.Labels, opts ...Option) *Aggregator {
	a := &Aggregator{loader: loader, client: client, labels: labels}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Outcome carries the substantive result of a gate run. It is valid even
// when Run also returns an error: a broken comment post or label API does
// not change what the checks concluded, and the two signals must not be
// conflated.
type Outcome struct {
	RunID    string
	Results  []check.Result
	Passed   bool
	Report   report.Report
	Rendered string
}

// Run performs one aggregation pass for the given run ID. The caller is
// responsible for the fan-in barrier: all three runners must have reached
// a terminal state before Run starts.
func (a *Aggregator) Run(ctx context.Context, runID string) (Outcome, error) {
	var zero Outcome
	if a == nil || a.loader == nil {
		return zero, fmt.Errorf("aggregator is not configured")
	}

	results, err := a.loader.DeriveAll(ctx, runID)
	if err != nil {
		return zero, err
	}
	coverage, err := a.loader.Load(ctx, runID, check.CoverageArtifact)
	if err != nil {
		return zero, err
	}

	rep := report.Build(results, coverage)
	out := Outcome{
		RunID:   runID,
		Results: results,
		Passed:  check.Verdict(results),
		Report:  rep,
	}
	out.Rendered = a.renderComment(ctx, out)

	if a.client == nil {
		return out, fmt.Errorf("proposal client is not configured")
	}
	if err := a.client.PostComment(ctx, out.Rendered); err != nil {
		return out, err
	}
	if err := reconcile.Apply(ctx, a.client, a.labels, out.Passed); err != nil {
		return out, err
	}

	if a.history != nil {
		if err := a.history.Record(ctx, history.FromOutcome(runID, results, out.Passed)); err != nil {
			// History is bookkeeping; a write failure must not fail the gate.
			log.Printf("aggregate: record run history: %v", err)
		}
	}
	return out, nil
}

// renderComment prepends the optional failure summary to the rendered
// report. Summarizer failure degrades to the plain report.
func (a *Aggregator) renderComment(ctx context.Context, out Outcome) string {
	body := out.Report.Render()
	if a.summarizer == nil || out.Passed {
		return body
	}
	summary, err := a.summarizer.Summarize(ctx, out.Results)
	if err != nil {
		log.Printf("aggregate: failure summary unavailable: %v", err)
		return body
	}
	if summary == "" {
		return body
	}
	return "> " + summary + "\n\n" + body
}
