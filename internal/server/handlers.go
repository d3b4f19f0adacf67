package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/orchestrator"
	"github.com/canvass-ai/surveyd/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Domain) == "" || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "domain and question are required")
		return
	}
	// Free-form regions are accepted (they only steer the prompt), but
	// flag ones outside the taxonomy for later cleanup.
	if req.Region != "" && !config.KnownRegion(req.Region) {
		AddLogField(r.Context(), "unrecognized_region", req.Region)
	}

	result := s.orch.ProcessQuestion(r.Context(), &req)
	AddLogField(r.Context(), "session_id", result.SessionID)
	AddLogField(r.Context(), "result_status", string(result.Status))

	status := http.StatusOK
	if result.Status == domain.StatusError {
		status = result.Kind.HTTPStatusCode()
	}
	writeJSON(w, status, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	history := s.orch.GetHistory(sessionID)
	if history == nil {
		history = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"history":    history,
	})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	result := s.orch.FinalizeSession(r.Context(), sessionID)

	status := http.StatusOK
	if result.Status == domain.StatusError {
		status = result.Kind.HTTPStatusCode()
	}
	writeJSON(w, status, result)
}

func (s *Server) handleSurvey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	bundle := s.pipe.GenerateSurvey(r.Context(), req.Topic)
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.orch.RecentResponses(r.Context(), limit)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to load responses")
		return
	}
	if turns == nil {
		turns = []domain.PersistedTurn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": turns})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
