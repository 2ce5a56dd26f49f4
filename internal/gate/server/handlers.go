package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"cigate/internal/check"
	artifactrepo "cigate/internal/gate/repository/artifact"
	"cigate/internal/history"
	"cigate/internal/proposal"
	"cigate/internal/report"
)

// Deps are the collaborators the read-only daemon endpoints need.
// History and Proposal may be nil; their endpoints then answer 404.
type Deps struct {
	Loader    *check.Loader
	Artifacts artifactrepo.Store
	History   *history.Store
	Proposal  proposal.Client
}

type runStatus struct {
	RunID  string         `json:"run_id"`
	Passed bool           `json:"passed"`
	Checks []statusResult `json:"checks"`
}

type statusResult struct {
	Kind   string `json:"kind"`
	Passed bool   `json:"passed"`
}

func NewMux(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	mux.HandleFunc("/runs/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		status, ok := loadStatus(r.Context(), deps.Loader, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("/runs/report", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
		if runID == "" {
			http.Error(w, "run_id is required", http.StatusBadRequest)
			return
		}
		results, err := deps.Loader.DeriveAll(r.Context(), runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		coverage, err := deps.Loader.Load(r.Context(), runID, check.CoverageArtifact)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(report.Build(results, coverage).Render()))
	})
	mux.HandleFunc("/runs/artifacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
		if runID == "" {
			http.Error(w, "run_id is required", http.StatusBadRequest)
			return
		}
		if deps.Artifacts == nil {
			http.Error(w, "artifact listing is not configured", http.StatusNotFound)
			return
		}
		names, err := deps.Artifacts.List(r.Context(), runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		type artifactLink struct {
			Name string `json:"name"`
			URL  string `json:"url,omitempty"`
		}
		links := make([]artifactLink, 0, len(names))
		for _, name := range names {
			u, err := deps.Artifacts.GetURL(r.Context(), runID, name)
			if err != nil {
				// The listing is still useful without a download link.
				log.Printf("artifact url %s/%s: %v", runID, name, err)
				u = ""
			}
			links = append(links, artifactLink{Name: name, URL: u})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"run_id": runID, "artifacts": links})
	})
	mux.HandleFunc("/proposal/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if deps.Proposal == nil {
			http.Error(w, "proposal client is not configured", http.StatusNotFound)
			return
		}
		labels, err := deps.Proposal.Labels(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if labels == nil {
			labels = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"labels": labels})
	})
	mux.HandleFunc("/runs/recent", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if deps.History == nil {
			http.Error(w, "run history is not configured", http.StatusNotFound)
			return
		}
		entries, err := deps.History.Recent(r.Context(), 50)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"runs": entries})
	})
	mux.HandleFunc("/ws/runs", func(w http.ResponseWriter, r *http.Request) {
		handleRunWS(w, r, deps)
	})
	return mux
}

func loadStatus(ctx context.Context, loader *check.Loader, w http.ResponseWriter, r *http.Request) (runStatus, bool) {
	var zero runStatus
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return zero, false
	}
	results, err := loader.DeriveAll(ctx, runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return zero, false
	}
	return statusFromResults(runID, results), true
}

func statusFromResults(runID string, results []check.Result) runStatus {
	status := runStatus{RunID: runID, Passed: check.Verdict(results)}
	for _, res := range results {
		status.Checks = append(status.Checks, statusResult{Kind: string(res.Kind), Passed: res.Passed})
	}
	return status
}
