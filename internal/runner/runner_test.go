package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cigate/internal/check"
	artifactrepo "cigate/internal/gate/repository/artifact"
)

func shellCheck(kind check.Kind, script string) Check {
	return Check{Kind: kind, Command: []string{"sh", "-c", script}}
}

func mustGet(t *testing.T, store artifactrepo.Store, runID, name string) string {
	t.Helper()
	raw, err := store.Get(context.Background(), runID, name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	return string(raw)
}

func mustBeAbsent(t *testing.T, store artifactrepo.Store, runID, name string) {
	t.Helper()
	_, err := store.Get(context.Background(), runID, name)
	if !errors.Is(err, artifactrepo.ErrNotFound) {
		t.Fatalf("artifact %s should be absent, got err=%v", name, err)
	}
}

func TestRunPassingCheckUploadsOutputOnly(t *testing.T) {
	store := artifactrepo.NewMemoryStore()
	r := New(store, t.TempDir())

	err := r.Run(context.Background(), "run-1", shellCheck(check.Format, "echo all clean"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out := mustGet(t, store, "run-1", "format-output"); !strings.Contains(out, "all clean") {
		t.Fatalf("output = %q", out)
	}
	mustBeAbsent(t, store, "run-1", "format-marker")
	mustBeAbsent(t, store, "run-1", "coverage-output")
}

func TestRunFailingCheckUploadsMarker(t *testing.T) {
	store := artifactrepo.NewMemoryStore()
	r := New(store, t.TempDir())

	err := r.Run(context.Background(), "run-1", shellCheck(check.Lint, "echo lint says no; exit 3"))
	if err != nil {
		t.Fatalf("tool failure is data, not an error; got %v", err)
	}
	if out := mustGet(t, store, "run-1", "lint-output"); !strings.Contains(out, "lint says no") {
		t.Fatalf("output = %q", out)
	}
	marker := mustGet(t, store, "run-1", "lint-marker")
	if !strings.Contains(marker, "lint check failed") {
		t.Fatalf("marker = %q", marker)
	}
}

func TestTestCheckAlwaysUploadsCoverage(t *testing.T) {
	store := artifactrepo.NewMemoryStore()
	r := New(store, t.TempDir())

	// Even a failing test run gets a coverage artifact.
	err := r.Run(context.Background(), "run-1", shellCheck(check.Test, "echo 2 tests failed; exit 1"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cov := mustGet(t, store, "run-1", check.CoverageArtifact); !strings.Contains(cov, "2 tests failed") {
		t.Fatalf("coverage fallback = %q", cov)
	}
}

func TestTestCheckPrefersCoverageFile(t *testing.T) {
	store := artifactrepo.NewMemoryStore()
	dir := t.TempDir()
	covPath := filepath.Join(dir, "coverage.txt")
	if err := os.WriteFile(covPath, []byte("coverage: 88.8% of statements\n"), 0o644); err != nil {
		t.Fatalf("write coverage file: %v", err)
	}
	r := New(store, dir)

	c := shellCheck(check.Test, "echo ran tests")
	c.CoverageFile = covPath
	if err := r.Run(context.Background(), "run-1", c); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cov := mustGet(t, store, "run-1", check.CoverageArtifact); !strings.Contains(cov, "88.8%") {
		t.Fatalf("coverage = %q", cov)
	}
}

func TestRunAllWaitsForEveryCheck(t *testing.T) {
	store := artifactrepo.NewMemoryStore()
	r := New(store, t.TempDir())

	errs := r.RunAll(context.Background(), "run-1", []Check{
		shellCheck(check.Format, "echo fmt ok"),
		shellCheck(check.Lint, "exit 1"),
		shellCheck(check.Test, "echo tests ok"),
	})
	if len(errs) != 0 {
		t.Fatalf("RunAll() errs = %v", errs)
	}

	names, err := store.List(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"coverage-output", "format-output", "lint-marker", "lint-output", "test-output"}
	if len(names) != len(want) {
		t.Fatalf("artifacts = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("artifacts = %v, want %v", names, want)
		}
	}
}

func TestRunMissingCommandIsConfigError(t *testing.T) {
	r := New(artifactrepo.NewMemoryStore(), t.TempDir())
	if err := r.Run(context.Background(), "run-1", Check{Kind: check.Format}); err == nil {
		t.Fatalf("empty command must be rejected")
	}
}
