package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-reports/internal/api/middleware"
	"github.com/dvloznov/finance-reports/internal/runs"
)

// RunsHandler serves the run ledger and the artifacts runs produced.
type RunsHandler struct {
	store runs.Store
	log   zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store runs.Store, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		store: store,
		log:   log,
	}
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	ctx := r.Context()

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		h.writeStoreError(w, err, runID)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := runs.Filter{
		Status: runs.Status(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	runList, err := h.store.ListRuns(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runList,
		"count": len(runList),
	})
}

// GetArtifact handles GET /api/runs/{id}/artifacts/{file}. Only files the
// run recorded as written are served, from the path the run stored. Runs
// share the output directory, so a file modified after the run finished
// belongs to a later run and is answered with 410 Gone.
func (h *RunsHandler) GetArtifact(w http.ResponseWriter, r *http.Request, runID, file string) {
	ctx := r.Context()

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		h.writeStoreError(w, err, runID)
		return
	}

	for _, v := range run.Views {
		if v.File != file {
			continue
		}
		if v.Outcome != runs.OutcomeWritten || v.Path == "" {
			middleware.WriteError(w, http.StatusNotFound, "Artifact was not written")
			return
		}

		info, err := os.Stat(v.Path)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, "Artifact file is missing")
			return
		}
		if superseded(run, info.ModTime()) {
			middleware.WriteError(w, http.StatusGone, "Artifact was overwritten by a later run")
			return
		}
		http.ServeFile(w, r, v.Path)
		return
	}

	middleware.WriteError(w, http.StatusNotFound, "Artifact not found")
}

// superseded reports whether a file modified at mod postdates run.
func superseded(run *runs.Run, mod time.Time) bool {
	return run.FinishedAt != nil && mod.After(*run.FinishedAt)
}

func (h *RunsHandler) writeStoreError(w http.ResponseWriter, err error, runID string) {
	if errors.Is(err, runs.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
	middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
}

// NewRouter wires the run endpoints and the health check behind
// middleware.Chain, which also restricts the API to reads.
func NewRouter(store runs.Store, log zerolog.Logger) http.Handler {
	runsHandler := NewRunsHandler(store, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/runs", runsHandler.ListRuns)

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		// /api/runs/{id} or /api/runs/{id}/artifacts/{file}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			runsHandler.GetRun(w, r, parts[0])
		case len(parts) == 3 && parts[0] != "" && parts[1] == "artifacts" && parts[2] != "":
			runsHandler.GetArtifact(w, r, parts[0], parts[2])
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux, log)
}
