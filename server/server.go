// Package server exposes the conversation entry point and the dashboard API
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
	"github.com/naruemon-s/glowdesk/db"
	"github.com/naruemon-s/glowdesk/pkg/retrieval"
	"github.com/naruemon-s/glowdesk/pkg/storage"
)

// Conversation is the dispatcher seam; tests swap in a fake.
type Conversation interface {
	HandleTurn(ctx context.Context, key statex.Key, turn statex.Turn) ([]contractx.Event, error)
}

type Server struct {
	conversation Conversation
	sessions     statex.Store
	store        *db.Store
	blobs        *storage.Client
	retriever    *retrieval.Client
}

func New(
	conversation Conversation,
	sessions statex.Store,
	store *db.Store,
	blobs *storage.Client,
	retriever *retrieval.Client,
) *Server {
	return &Server{
		conversation: conversation,
		sessions:     sessions,
		store:        store,
		blobs:        blobs,
		retriever:    retriever,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/run", s.handleRun)
	r.Post("/apps/{appName}/users/{userID}/sessions", s.handleCreateSession)
	r.Post("/apps/{appName}/users/{userID}/sessions/{sessionID}", s.handleCreateSession)
	r.Get("/apps/{appName}/users/{userID}/sessions/{sessionID}", s.handleGetSession)

	r.Get("/api/chat-history", s.handleChatHistory)
	r.Post("/api/chat-history", s.handleChatHistory)
	r.Get("/api/customers", s.handleCustomers)
	r.Get("/api/appointments", s.handleAppointments)
	r.Get("/api/portfolio", s.handleListPortfolio)
	r.Post("/api/portfolio/upload", s.handlePortfolioUpload)
	r.Get("/api/business-info", s.handleBusinessInfo)
	r.Post("/api/merchant/settings", s.handleMerchantSettings)
	r.Post("/api/merchant/business-hours", s.handleBusinessHours)
	r.Post("/api/merchant/upload-document", s.handleUploadDocument)
	r.Post("/api/user-info", s.handleUserInfo)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
