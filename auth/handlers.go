// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"alchemist/server/shared/logger"
)

// Handler provides the HTTP surface for account management.
type Handler struct {
	service      *Service
	log          *logger.Logger
	secureCookie bool
}

// NewHandler creates an auth handler. secureCookie should be false only in
// local development.
func NewHandler(service *Service, log *logger.Logger, secureCookie bool) *Handler {
	return &Handler{service: service, log: log, secureCookie: secureCookie}
}

// RegisterRoutes registers the auth routes with a gorilla/mux router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	r.HandleFunc("/auth/signin", h.Signin).Methods("POST")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	r.HandleFunc("/auth/me", h.Me).Methods("GET")
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userSummary is the client-facing view of a user record.
type userSummary struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Plan         string `json:"plan"`
	SearchesUsed int    `json:"searchesUsed"`
}

func summarize(u *User, now time.Time) userSummary {
	return userSummary{
		ID:           u.ID.String(),
		Email:        u.Email,
		Name:         u.Name,
		Plan:         string(u.Plan),
		SearchesUsed: u.EffectiveSearchesUsed(now),
	}
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrEmailTaken):
			h.writeError(w, "Email already registered", http.StatusConflict)
		default:
			h.log.ErrorWithCode("", requestID(r), "Signup failed", http.StatusInternalServerError, err, nil)
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	SetAuthCookie(w, token, h.secureCookie)
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    summarize(user, time.Now()),
	})
}

// Signin handles POST /auth/signin
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			h.writeError(w, "Invalid email or password", http.StatusUnauthorized)
		default:
			h.log.ErrorWithCode("", requestID(r), "Signin failed", http.StatusInternalServerError, err, nil)
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	SetAuthCookie(w, token, h.secureCookie)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    summarize(user, time.Now()),
	})
}

// Logout handles POST /auth/logout. Always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearAuthCookie(w, h.secureCookie)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Me handles GET /auth/me. A missing or invalid token is 401; a valid token
// for a deleted user is 404.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Authenticate(r.Context(), TokenFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			h.writeError(w, "Not authenticated", http.StatusUnauthorized)
		case errors.Is(err, ErrUserNotFound):
			h.writeError(w, "User not found", http.StatusNotFound)
		default:
			h.log.ErrorWithCode("", requestID(r), "Identity resolution failed", http.StatusInternalServerError, err, nil)
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    summarize(user, time.Now()),
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

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}
