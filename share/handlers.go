// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package share

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"alchemist/server/impact"
	"alchemist/server/shared/logger"
)

// Handler provides the HTTP surface for shared searches.
type Handler struct {
	service *Service
	log     *logger.Logger
}

// NewHandler creates a share handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes registers the share routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/share", h.Create).Methods("POST")
	r.HandleFunc("/share", h.Get).Methods("GET")
}

type createRequest struct {
	Query      string             `json:"query"`
	Response   string             `json:"response"`
	Metrics    *impact.Metrics    `json:"metrics"`
	TokenUsage *impact.TokenUsage `json:"tokenUsage"`
}

// Create handles POST /share
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	shareID, shareURL, err := h.service.Create(r.Context(), req.Query, req.Response, req.Metrics, req.TokenUsage)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.ErrorWithCode("", r.Header.Get("X-Request-ID"), "Failed to publish shared search", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"shareId":  shareID,
		"shareUrl": shareURL,
	})
}

// Get handles GET /share?shareId=
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	shareID := r.URL.Query().Get("shareId")
	if shareID == "" {
		h.writeError(w, "shareId is required", http.StatusBadRequest)
		return
	}

	snapshot, err := h.service.Get(r.Context(), shareID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, "Shared search not found", http.StatusNotFound)
			return
		}
		h.log.ErrorWithCode("", r.Header.Get("X-Request-ID"), "Failed to resolve shared search", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"share":   snapshot,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
