package report

import (
	"fmt"
	"strings"

	"cigate/internal/check"
)

// NoCoverageFallback is rendered when the test runner never uploaded a
// coverage summary.
const NoCoverageFallback = "No coverage report available."

// Section is one rendered block of the gate report.
type Section struct {
	Title  string
	Passed bool
	Body   string
}

// Report is the full gate comment: one section per check in fixed order,
// plus the trailing coverage section. It is a plain value; Build returns
// a fresh one on every run and nothing mutates it afterwards.
type Report struct {
	Sections []Section
	Coverage string
}

// Build assembles the report from the derived check results and the
// coverage artifact. The coverage section renders unconditionally, even
// when tests failed.
func Build(results []check.Result, coverage check.Artifact) Report {
	sections := make([]Section, 0, len(results))
	for _, r := range results {
		sections = append(sections, Section{
			Title:  r.Kind.Title(),
			Passed: r.Passed,
			Body:   r.Output,
		})
	}
	cov := strings.TrimSpace(coverage.Content)
	if !coverage.Present || cov == "" {
		cov = NoCoverageFallback
	}
	return Report{Sections: sections, Coverage: cov}
}

// Render produces the Markdown body posted as the change-proposal comment.
// A passing check renders as a single green-circle bullet; a failing one
// as a red-circle heading with the tool's full output fenced verbatim.
func (r Report) Render() string {
	var b strings.Builder
	b.WriteString("## CI Gate Results\n\n")
	for _, s := range r.Sections {
		if s.Passed {
			fmt.Fprintf(&b, "- \U0001F7E2 **%s** passed\n", s.Title)
			continue
		}
		fmt.Fprintf(&b, "\n### \U0001F534 %s failed\n\n", s.Title)
		b.WriteString("```\n")
		b.WriteString(strings.TrimRight(s.Body, "\n"))
		b.WriteString("\n```\n")
	}
	b.WriteString("\n### Coverage\n\n")
	b.WriteString("```\n")
	b.WriteString(strings.TrimRight(r.Coverage, "\n"))
	b.WriteString("\n```\n")
	return b.String()
}
