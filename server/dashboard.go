package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/naruemon-s/glowdesk/agent/agents/ragfaq"
	"github.com/naruemon-s/glowdesk/db"
)

const maxUploadBytes = 20 << 20

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" && r.Method == http.MethodPost {
		var req struct {
			SessionID string `json:"session_id"`
		}
		if err := decodeJSON(r, &req); err == nil {
			sessionID = strings.TrimSpace(req.SessionID)
		}
	}
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "session_id is required")
		return
	}

	messages, err := s.store.ListMessages(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.store.ListCustomers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "customers_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := s.store.ListAppointments(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "appointments_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

func (s *Server) handleListPortfolio(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email is required")
		return
	}
	items, err := s.store.ListPortfolio(r.Context(), email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "portfolio_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"portfolio": items})
}

func (s *Server) handlePortfolioUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_image", "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read_failed", err.Error())
		return
	}

	merchantID, err := s.merchantIDFromForm(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "merchant_failed", err.Error())
		return
	}

	objectPath := fmt.Sprintf("portfolio/%s/%s%s", merchantID, uuid.NewString(), filepath.Ext(header.Filename))
	imageURL, err := s.blobs.Upload(r.Context(), objectPath, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}

	price, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("price")), 64)
	item := db.Portfolio{
		ID:          uuid.NewString(),
		MerchantID:  merchantID,
		Description: strings.TrimSpace(r.FormValue("description")),
		Tags:        splitTags(r.FormValue("tags")),
		Price:       price,
		ImageURL:    imageURL,
	}
	if err := s.store.InsertPortfolio(r.Context(), item); err != nil {
		respondError(w, http.StatusInternalServerError, "insert_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleBusinessInfo(w http.ResponseWriter, r *http.Request) {
	merchant, err := s.store.LatestMerchant(r.Context())
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no_merchant", "no merchant configured")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "business_info_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, merchant)
}

func (s *Server) handleMerchantSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessName string `json:"business_name"`
		Address      string `json:"address"`
		WorkingHours string `json:"working_hours"`
		PhoneNumber  string `json:"phone_number"`
		ContactEmail string `json:"contact_email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if strings.TrimSpace(req.ContactEmail) == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "contact_email is required")
		return
	}

	err := s.store.UpsertMerchantSettings(r.Context(), db.Merchant{
		BusinessName: strings.TrimSpace(req.BusinessName),
		Address:      strings.TrimSpace(req.Address),
		WorkingHours: strings.TrimSpace(req.WorkingHours),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settings_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

func (s *Server) handleBusinessHours(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContactEmail string `json:"contact_email"`
		WorkingHours string `json:"working_hours"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if strings.TrimSpace(req.ContactEmail) == "" || strings.TrimSpace(req.WorkingHours) == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "contact_email and working_hours are required")
		return
	}

	err := s.store.UpdateWorkingHours(r.Context(), req.ContactEmail, req.WorkingHours)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "merchant_not_found", "no merchant with that email")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "hours_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

// handleUploadDocument stores the file, records a processing row, and kicks
// off corpus indexing in the background. The response does not wait for
// indexing.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file", "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read_failed", err.Error())
		return
	}

	merchantID, err := s.merchantIDFromForm(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "merchant_failed", err.Error())
		return
	}

	objectPath := fmt.Sprintf("documents/%s/%s%s", merchantID, uuid.NewString(), filepath.Ext(header.Filename))
	fileURL, err := s.blobs.Upload(r.Context(), objectPath, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}

	doc := db.MerchantDocument{
		ID:               uuid.NewString(),
		MerchantID:       merchantID,
		FileName:         header.Filename,
		FileURL:          fileURL,
		FileType:         strings.TrimPrefix(filepath.Ext(header.Filename), "."),
		ProcessingStatus: db.DocumentStatusProcessing,
	}
	if err := s.store.InsertMerchantDocument(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "insert_failed", err.Error())
		return
	}

	go s.indexDocument(doc)

	respondJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"file_url":    fileURL,
		"status":      doc.ProcessingStatus,
	})
}

func (s *Server) indexDocument(doc db.MerchantDocument) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	corpus := ragfaq.CorpusName(doc.MerchantID)
	status := db.DocumentStatusIndexed
	if err := s.retriever.EnsureCorpus(ctx, corpus, "merchant knowledge base"); err != nil {
		log.Error().Err(err).Str("corpus", corpus).Msg("ensure corpus failed")
		status = db.DocumentStatusError
	} else if err := s.retriever.ImportDocument(ctx, corpus, doc.FileName, doc.FileURL); err != nil {
		log.Error().Err(err).Str("corpus", corpus).Str("document_id", doc.ID).Msg("document import failed")
		status = db.DocumentStatusError
	}

	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, status); err != nil {
		log.Error().Err(err).Str("document_id", doc.ID).Msg("document status update failed")
	}
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Platform string `json:"platform"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if strings.TrimSpace(req.Phone) == "" && strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "missing_contact", "phone or email is required")
		return
	}

	if req.Platform == "" {
		req.Platform = "WebApp"
	}
	id, err := s.store.UpsertUserInfo(r.Context(), strings.TrimSpace(req.Name), req.Platform, req.Phone, req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "user_info_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": id})
}

// merchantIDFromForm resolves the target merchant from an optional email
// form field, falling back to the default merchant.
func (s *Server) merchantIDFromForm(r *http.Request) (string, error) {
	if email := strings.TrimSpace(r.FormValue("email")); email != "" {
		id, err := s.store.MerchantIDByEmail(r.Context(), email)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return "", err
		}
	}
	return s.store.DefaultMerchantID(r.Context())
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
