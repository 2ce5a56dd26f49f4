package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cigate/internal/check"
)

const (
	runWSWriteWait = 10 * time.Second
	runWSPongWait  = 60 * time.Second
	runWSPingEvery = (runWSPongWait * 9) / 10
	runWSPollEvery = 2 * time.Second
)

var runWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type runWSOutbound struct {
	Type     string    `json:"type"`
	Status   runStatus `json:"status"`
	Complete bool      `json:"complete"`
}

// handleRunWS streams run status snapshots to the client. Artifacts are
// write-once, so the loop polls the store and pushes a new snapshot only
// when the visible artifact set changes; the stream ends once all three
// output artifacts exist.
func handleRunWS(w http.ResponseWriter, r *http.Request, deps Deps) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	conn, err := runWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(runWSPongWait)); err != nil {
		log.Printf("run ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(runWSPongWait))
	})

	// Reader goroutine only services pongs and detects the client closing.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(runWSPingEvery)
	defer pingTicker.Stop()
	pollTicker := time.NewTicker(runWSPollEvery)
	defer pollTicker.Stop()

	var lastSignature string
	send := func() (done bool) {
		status, signature, complete, err := pollRun(r.Context(), deps, runID)
		if err != nil {
			log.Printf("run ws poll %s: %v", runID, err)
			return true
		}
		if signature == lastSignature && !complete {
			return false
		}
		lastSignature = signature
		_ = conn.SetWriteDeadline(time.Now().Add(runWSWriteWait))
		if err := conn.WriteJSON(runWSOutbound{Type: "status", Status: status, Complete: complete}); err != nil {
			return true
		}
		return complete
	}

	if send() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-readerDone:
			return
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(runWSWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-pollTicker.C:
			if send() {
				return
			}
		}
	}
}

// pollRun takes one snapshot of a run. Artifacts are write-once, so the
// store listing doubles as the change signature, and the run is complete
// once every runner's output artifact exists.
func pollRun(ctx context.Context, deps Deps, runID string) (runStatus, string, bool, error) {
	if deps.Artifacts == nil {
		return runStatus{}, "", false, fmt.Errorf("artifact store is not configured")
	}
	results, err := deps.Loader.DeriveAll(ctx, runID)
	if err != nil {
		return runStatus{}, "", false, err
	}
	names, err := deps.Artifacts.List(ctx, runID)
	if err != nil {
		return runStatus{}, "", false, err
	}
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}
	complete := true
	for _, kind := range check.Kinds {
		if !present[kind.OutputArtifact()] {
			complete = false
			break
		}
	}
	return statusFromResults(runID, results), strings.Join(names, ";"), complete, nil
}
