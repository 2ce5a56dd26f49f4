package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"cigate/internal/check"
	artifactrepo "cigate/internal/gate/repository/artifact"
)

// Check describes one verification tool to execute. The test check may
// name a coverage file to upload; when it does not, the tool's own
// output doubles as the coverage summary.
type Check struct {
	Kind         check.Kind
	Command      []string
	CoverageFile string
}

// Runner executes checks and uploads their artifacts. A tool failure is
// data (it becomes the marker artifact), never an error; errors are
// reserved for infrastructure problems like a failed upload.
type Runner struct {
	store artifactrepo.Store
	dir   string
}

func New(store artifactrepo.Store, dir string) *Runner {
	return &Runner{store: store, dir: dir}
}

// Run executes one check and uploads whatever artifacts exist, even when
// the tool failed, so downstream aggregation never blocks on a crashed
// runner. Upload failures are joined and returned after every upload has
// been attempted.
func (r *Runner) Run(ctx context.Context, runID string, c Check) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("runner is not configured")
	}
	if len(c.Command) == 0 {
		return fmt.Errorf("check %s: command is required", c.Kind)
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Dir = r.dir
	out, runErr := cmd.CombinedOutput()
	failed := runErr != nil

	var errs []string
	if err := r.store.Put(ctx, runID, c.Kind.OutputArtifact(), out); err != nil {
		errs = append(errs, fmt.Sprintf("upload %s: %v", c.Kind.OutputArtifact(), err))
	}
	if failed {
		sentinel := []byte(fmt.Sprintf("%s check failed: %v\n", c.Kind, runErr))
		if err := r.store.Put(ctx, runID, c.Kind.MarkerArtifact(), sentinel); err != nil {
			errs = append(errs, fmt.Sprintf("upload %s: %v", c.Kind.MarkerArtifact(), err))
		}
	}
	if c.Kind == check.Test {
		if err := r.store.Put(ctx, runID, check.CoverageArtifact, r.coverageSummary(c, out)); err != nil {
			errs = append(errs, fmt.Sprintf("upload %s: %v", check.CoverageArtifact, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("check %s: %s", c.Kind, strings.Join(errs, "; "))
	}
	return nil
}

// coverageSummary prefers the configured coverage file; a missing or
// unreadable file falls back to the tool output so the artifact is
// uploaded unconditionally.
func (r *Runner) coverageSummary(c Check, out []byte) []byte {
	if strings.TrimSpace(c.CoverageFile) != "" {
		raw, err := os.ReadFile(c.CoverageFile)
		if err == nil {
			return raw
		}
		log.Printf("runner: coverage file %s unreadable, falling back to tool output: %v", c.CoverageFile, err)
	}
	return out
}

// RunAll executes the checks as independent parallel tasks and waits for
// all of them to reach a terminal state. Each check writes a disjoint set
// of artifact names, so there is no write-write race at the store. The
// returned slice holds one entry per infrastructure failure; tool
// failures surface only as marker artifacts.
func (r *Runner) RunAll(ctx context.Context, runID string, checks []Check) []error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(checks))
	for _, c := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			if err := r.Run(ctx, runID, c); err != nil {
				errCh <- err
			}
		}(c)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}
