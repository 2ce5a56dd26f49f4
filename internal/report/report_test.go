package report

import (
	"strings"
	"testing"

	"cigate/internal/check"
)

func passAll() []check.Result {
	return []check.Result{
		{Kind: check.Format, Passed: true, Output: "Format check passed."},
		{Kind: check.Lint, Passed: true, Output: "Lint check passed."},
		{Kind: check.Test, Passed: true, Output: "Tests passed."},
	}
}

func TestBuildAlwaysHasFourSections(t *testing.T) {
	cases := []struct {
		name     string
		results  []check.Result
		coverage check.Artifact
	}{
		{"all pass with coverage", passAll(), check.Artifact{Present: true, Content: "coverage: 81.2%"}},
		{"all fail no coverage", []check.Result{
			{Kind: check.Format, Output: "diff"},
			{Kind: check.Lint, Output: "lint errors"},
			{Kind: check.Test, Output: "test failures"},
		}, check.Artifact{}},
	}
	for _, tc := range cases {
		rep := Build(tc.results, tc.coverage)
		if len(rep.Sections) != 3 {
			t.Fatalf("%s: got %d check sections", tc.name, len(rep.Sections))
		}
		if rep.Coverage == "" {
			t.Fatalf("%s: coverage section must always render", tc.name)
		}
		rendered := rep.Render()
		for _, title := range []string{"Format", "Lint", "Test", "Coverage"} {
			if !strings.Contains(rendered, title) {
				t.Fatalf("%s: rendered report missing %s section:\n%s", tc.name, title, rendered)
			}
		}
	}
}

func TestRenderAllPassed(t *testing.T) {
	rep := Build(passAll(), check.Artifact{Present: true, Content: "coverage: 90.0% of statements"})
	out := rep.Render()

	if got := strings.Count(out, "\U0001F7E2"); got != 3 {
		t.Fatalf("want 3 green-circle lines, got %d:\n%s", got, out)
	}
	if strings.Contains(out, "\U0001F534") {
		t.Fatalf("no red circles expected:\n%s", out)
	}
	if !strings.Contains(out, "coverage: 90.0% of statements") {
		t.Fatalf("coverage text missing:\n%s", out)
	}
}

func TestRenderFailureIncludesVerbatimOutput(t *testing.T) {
	results := passAll()
	results[1] = check.Result{Kind: check.Lint, Passed: false, Output: "pkg/foo.go:12: unused variable `x`"}

	out := Build(results, check.Artifact{Present: true, Content: "cov"}).Render()

	if !strings.Contains(out, "\U0001F534 Lint failed") {
		t.Fatalf("missing red-circle lint heading:\n%s", out)
	}
	if !strings.Contains(out, "pkg/foo.go:12: unused variable `x`") {
		t.Fatalf("lint output not rendered verbatim:\n%s", out)
	}
	if got := strings.Count(out, "\U0001F7E2"); got != 2 {
		t.Fatalf("want 2 green-circle lines, got %d", got)
	}
}

func TestCoverageFallback(t *testing.T) {
	rep := Build(passAll(), check.Artifact{Present: false})
	if rep.Coverage != NoCoverageFallback {
		t.Fatalf("coverage = %q, want fallback", rep.Coverage)
	}
	// Present but blank behaves the same.
	rep = Build(passAll(), check.Artifact{Present: true, Content: "   \n"})
	if rep.Coverage != NoCoverageFallback {
		t.Fatalf("blank coverage = %q, want fallback", rep.Coverage)
	}
}
