package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

type runRequest struct {
	AppName    string `json:"app_name"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	NewMessage struct {
		Role  string        `json:"role"`
		Parts []statex.Part `json:"parts"`
	} `json:"new_message"`
}

type runEvent struct {
	Author  string `json:"author"`
	Content struct {
		Role  statex.Role   `json:"role"`
		Parts []statex.Part `json:"parts"`
	} `json:"content"`
}

// handleRun is the conversation entry point: one user turn in, the ordered
// event stream out.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	key := statex.Key{
		App:       strings.TrimSpace(req.AppName),
		UserID:    strings.TrimSpace(req.UserID),
		SessionID: strings.TrimSpace(req.SessionID),
	}
	if err := key.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session_key", err.Error())
		return
	}
	if len(req.NewMessage.Parts) == 0 {
		respondError(w, http.StatusBadRequest, "empty_message", "new_message.parts is required")
		return
	}

	turn := statex.Turn{
		Role:  statex.RoleUser,
		Parts: req.NewMessage.Parts,
		At:    time.Now(),
	}

	events, err := s.conversation.HandleTurn(r.Context(), key, turn)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	out := make([]runEvent, 0, len(events))
	for _, ev := range events {
		re := runEvent{Author: string(ev.Author)}
		re.Content.Role = ev.Role
		re.Content.Parts = ev.Parts
		out = append(out, re)
	}
	respondJSON(w, http.StatusOK, out)
}

type createSessionRequest struct {
	State map[string]any `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	key := statex.Key{
		App:       chi.URLParam(r, "appName"),
		UserID:    chi.URLParam(r, "userID"),
		SessionID: chi.URLParam(r, "sessionID"),
	}
	if key.SessionID == "" {
		key.SessionID = uuid.NewString()
	}
	if err := key.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session_key", err.Error())
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	sess, err := s.sessions.Create(r.Context(), key, req.State)
	if errors.Is(err, statex.ErrSessionExists) {
		respondError(w, http.StatusConflict, "session_exists", "session already exists")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := statex.Key{
		App:       chi.URLParam(r, "appName"),
		UserID:    chi.URLParam(r, "userID"),
		SessionID: chi.URLParam(r, "sessionID"),
	}
	if err := key.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session_key", err.Error())
		return
	}

	sess, err := s.sessions.Get(r.Context(), key)
	if errors.Is(err, statex.ErrStateNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}
