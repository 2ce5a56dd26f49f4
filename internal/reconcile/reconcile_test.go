package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"cigate/internal/proposal"
)

// fakeClient tracks the proposal's label set in memory and mimics the
// API's remove-absent behavior.
type fakeClient struct {
	labels    map[string]bool
	removeErr error
	addErr    error
	removes   int
	adds      int
}

func newFakeClient(labels ...string) *fakeClient {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	return &fakeClient{labels: set}
}

func (f *fakeClient) PostComment(context.Context, string) error { return nil }

func (f *fakeClient) AddLabel(_ context.Context, name string) error {
	f.adds++
	if f.addErr != nil {
		return f.addErr
	}
	f.labels[name] = true
	return nil
}

func (f *fakeClient) RemoveLabel(_ context.Context, name string) error {
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	if !f.labels[name] {
		return proposal.ErrLabelNotFound
	}
	delete(f.labels, name)
	return nil
}

func (f *fakeClient) Labels(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.labels))
	for l := range f.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeClient) snapshot() string {
	labels, _ := f.Labels(context.Background())
	return fmt.Sprintf("%v", labels)
}

func TestApplyConvergesFromAnyStartingState(t *testing.T) {
	starts := [][]string{
		{},
		{"Passed"},
		{"Failed"},
		{"Passed", "Failed"},
	}
	for _, passed := range []bool{true, false} {
		want := "[Failed]"
		if passed {
			want = "[Passed]"
		}
		for _, start := range starts {
			client := newFakeClient(start...)
			if err := Apply(context.Background(), client, DefaultLabels(), passed); err != nil {
				t.Fatalf("start=%v passed=%v: Apply() error = %v", start, passed, err)
			}
			if got := client.snapshot(); got != want {
				t.Fatalf("start=%v passed=%v: labels = %s, want %s", start, passed, got, want)
			}
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	client := newFakeClient("Failed")
	if err := Apply(context.Background(), client, DefaultLabels(), true); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	first := client.snapshot()
	if err := Apply(context.Background(), client, DefaultLabels(), true); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if got := client.snapshot(); got != first {
		t.Fatalf("second apply changed state: %s -> %s", first, got)
	}
	if first != "[Passed]" {
		t.Fatalf("final state = %s", first)
	}
}

func TestApplyUsesAtMostOneRemoveAndOneAdd(t *testing.T) {
	client := newFakeClient("Failed")
	if err := Apply(context.Background(), client, DefaultLabels(), true); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if client.removes != 1 || client.adds != 1 {
		t.Fatalf("removes=%d adds=%d, want 1/1", client.removes, client.adds)
	}
}

func TestApplySwallowsOnlyLabelNotFound(t *testing.T) {
	// Absent label on remove: fine.
	client := newFakeClient()
	if err := Apply(context.Background(), client, DefaultLabels(), true); err != nil {
		t.Fatalf("Apply() with absent label error = %v", err)
	}

	// Any other removal failure is fatal.
	client = newFakeClient("Failed")
	client.removeErr = errors.New("api: 403 rate limited")
	err := Apply(context.Background(), client, DefaultLabels(), true)
	if err == nil {
		t.Fatalf("Apply() must propagate non-404 removal failures")
	}
	// The add never ran, so the prior state is untouched.
	if got := client.snapshot(); got != "[Failed]" {
		t.Fatalf("labels mutated despite failed removal: %s", got)
	}
}

func TestApplyPropagatesAddFailure(t *testing.T) {
	client := newFakeClient()
	client.addErr = errors.New("api: 500")
	if err := Apply(context.Background(), client, DefaultLabels(), false); err == nil {
		t.Fatalf("Apply() must propagate add failures")
	}
}
