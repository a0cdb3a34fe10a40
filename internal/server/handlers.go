package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scrolldoc/internal/content"
	"scrolldoc/internal/engine"
	"scrolldoc/internal/fetcher"
	"scrolldoc/internal/region"
)

// regionsResponse is the JSON response for the region table endpoint.
// Crossings tells the shell which intersection thresholds to observe at.
type regionsResponse struct {
	Regions   []engine.RegionStatus `json:"regions"`
	Crossings []float64             `json:"crossings"`
}

// regionContentResponse carries one region's rendered content. Exactly
// one of Document or LegacyHTML is set.
type regionContentResponse struct {
	ID         string                    `json:"id"`
	Document   *content.RenderedDocument `json:"document,omitempty"`
	LegacyHTML string                    `json:"legacy_html,omitempty"`
}

// prefsResponse is the viewer preference payload, both directions.
type prefsResponse struct {
	SidebarWidth     int  `json:"sidebar_width"`
	SidebarCollapsed bool `json:"sidebar_collapsed"`
}

const defaultSidebarWidth = 280

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, regionsResponse{
		Regions:   snap,
		Crossings: s.engine.Tracker().Crossings(),
	})
}

// handleRegionContent returns a region's rendered content, loading it
// first if needed. Concurrent requests for the same region share one
// fetch inside the engine.
func (s *Server) handleRegionContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payload, err := s.engine.RequestContent(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		var exhausted *fetcher.ExhaustedError
		switch {
		case errors.Is(err, region.ErrNotFound):
			status = http.StatusNotFound
		case errors.As(err, &exhausted):
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	resp := regionContentResponse{ID: id}
	if payload != nil {
		resp.Document = payload.Doc
		resp.LegacyHTML = string(payload.LegacyHTML)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.engine.Submit(engine.RetryEvent{RegionID: id}) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session closed"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "id": id})
}

// handleReload forces a fresh load, walking the candidate list again.
// Registered only in authoring mode.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resetPath := r.URL.Query().Get("reset_path") == "true"
	if !s.engine.Submit(engine.ReloadEvent{RegionID: id, ResetPath: resetPath}) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session closed"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "id": id})
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := prefsResponse{SidebarWidth: defaultSidebarWidth}

	if width, ok, err := s.prefs.SidebarWidth(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	} else if ok {
		resp.SidebarWidth = width
	}
	if collapsed, ok, err := s.prefs.SidebarCollapsed(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	} else if ok {
		resp.SidebarCollapsed = collapsed
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var req prefsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.SidebarWidth <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sidebar_width must be positive"})
		return
	}

	ctx := r.Context()
	if err := s.prefs.SetSidebarWidth(ctx, req.SidebarWidth); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.prefs.SetSidebarCollapsed(ctx, req.SidebarCollapsed); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
