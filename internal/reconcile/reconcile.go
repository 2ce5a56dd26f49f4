package reconcile

import (
	"context"
	"errors"
	"fmt"

	"cigate/internal/proposal"
)

// Default label names. Exactly one of the pair is present after a
// successful reconciliation.
const (
	LabelPassed = "Passed"
	LabelFailed = "Failed"
)

// Labels is the mutually exclusive label pair the gate maintains.
type Labels struct {
	Passed string
	Failed string
}

func DefaultLabels() Labels {
	return Labels{Passed: LabelPassed, Failed: LabelFailed}
}

// Apply drives the proposal's label set to {Passed} xor {Failed}
// according to the verdict. It removes the stale label first and then
// adds the target one, so any starting state, including the invalid
// transients {} and {Passed,Failed}, converges in at most one remove
// plus one add. Removing a label that is not there is the only
// swallowed failure; anything else aborts, leaving the previous state
// for a rerun to converge on.
func Apply(ctx context.Context, client proposal.Client, labels Labels, passed bool) error {
	if client == nil {
		return fmt.Errorf("proposal client is not configured")
	}
	target, other := labels.Failed, labels.Passed
	if passed {
		target, other = labels.Passed, labels.Failed
	}

	if err := client.RemoveLabel(ctx, other); err != nil && !errors.Is(err, proposal.ErrLabelNotFound) {
		return fmt.Errorf("reconcile labels: %w", err)
	}
	if err := client.AddLabel(ctx, target); err != nil {
		return fmt.Errorf("reconcile labels: %w", err)
	}
	return nil
}
