package check

import (
	"context"
	"errors"
	"fmt"
	"strings"

	artifactrepo "cigate/internal/gate/repository/artifact"
)

// Kind identifies one of the three gate checks.
type Kind string

const (
	Format Kind = "format"
	Lint   Kind = "lint"
	Test   Kind = "test"
)

// Kinds is the fixed evaluation and report order. Every consumer iterates
// this list instead of hard-coding per-kind branches.
var Kinds = []Kind{Format, Lint, Test}

// CoverageArtifact is uploaded by the test runner on every run, pass or fail.
const CoverageArtifact = "coverage-output"

func (k Kind) OutputArtifact() string { return string(k) + "-output" }

// MarkerArtifact names the sentinel blob a runner uploads only when its
// tool failed. Presence of the marker is the sole failure signal; output
// text is never parsed for pass/fail.
func (k Kind) MarkerArtifact() string { return string(k) + "-marker" }

func (k Kind) Title() string {
	switch k {
	case Format:
		return "Format"
	case Lint:
		return "Lint"
	case Test:
		return "Test"
	}
	return string(k)
}

// passedPlaceholder stands in for an output artifact that was never
// uploaded, e.g. when the runner crashed before capturing anything.
// The report must always render something for every section.
func (k Kind) passedPlaceholder() string {
	if k == Test {
		return "Tests passed."
	}
	return k.Title() + " check passed."
}

// Artifact is one blob produced by a check runner. Absence is a valid,
// expected state, not an error.
type Artifact struct {
	Name    string
	Content string
	Present bool
}

// Result is the derived outcome of one check. Passed is a pure function
// of marker-artifact presence.
type Result struct {
	Kind   Kind
	Passed bool
	Output string
}

// DefaultMissingText is the content Load reports for an artifact the
// store never received, unless the operator configured their own text.
const DefaultMissingText = "No artifact content was recorded."

// Loader reads check artifacts out of the store, treating absence as data.
type Loader struct {
	store       artifactrepo.Store
	missingText string
}

func NewLoader(store artifactrepo.Store) *Loader {
	return NewLoaderWithFallback(store, "")
}

// NewLoaderWithFallback sets the text reported for missing artifacts.
// Empty means DefaultMissingText.
func NewLoaderWithFallback(store artifactrepo.Store, missingText string) *Loader {
	if strings.TrimSpace(missingText) == "" {
		missingText = DefaultMissingText
	}
	return &Loader{store: store, missingText: missingText}
}

// Load is total for a missing artifact: it reports Present=false with
// the configured fallback text instead of failing. Any store error other
// than not-found is an infrastructure failure and propagates.
func (l *Loader) Load(ctx context.Context, runID, name string) (Artifact, error) {
	if l == nil || l.store == nil {
		return Artifact{}, fmt.Errorf("loader is not configured")
	}
	raw, err := l.store.Get(ctx, runID, name)
	if errors.Is(err, artifactrepo.ErrNotFound) {
		return Artifact{Name: name, Content: l.missingText}, nil
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("load artifact %s: %w", name, err)
	}
	return Artifact{Name: name, Content: string(raw), Present: true}, nil
}

// Derive computes the Result for one check kind from its two artifacts.
func (l *Loader) Derive(ctx context.Context, runID string, kind Kind) (Result, error) {
	marker, err := l.Load(ctx, runID, kind.MarkerArtifact())
	if err != nil {
		return Result{}, err
	}
	output, err := l.Load(ctx, runID, kind.OutputArtifact())
	if err != nil {
		return Result{}, err
	}
	text := output.Content
	if !output.Present || strings.TrimSpace(text) == "" {
		text = kind.passedPlaceholder()
	}
	return Result{
		Kind:   kind,
		Passed: !marker.Present,
		Output: text,
	}, nil
}

// DeriveAll evaluates every kind in fixed order. All three are always
// evaluated; an early failure never short-circuits the rest.
func (l *Loader) DeriveAll(ctx context.Context, runID string) ([]Result, error) {
	results := make([]Result, 0, len(Kinds))
	for _, kind := range Kinds {
		res, err := l.Derive(ctx, runID, kind)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Verdict is true iff every check passed.
func Verdict(results []Result) bool {
	passed := true
	for _, r := range results {
		passed = passed && r.Passed
	}
	return passed
}
