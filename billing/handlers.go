// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"alchemist/server/auth"
	"alchemist/server/shared/logger"
)

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

// Handler provides the HTTP surface for billing.
type Handler struct {
	service *Service
	client  *Client
	users   *auth.Service
	log     *logger.Logger
}

// NewHandler creates a billing handler.
func NewHandler(service *Service, client *Client, users *auth.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, client: client, users: users, log: log}
}

// RegisterRoutes registers the billing routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/billing/checkout", h.Checkout).Methods("POST")
	r.HandleFunc("/billing/portal", h.Portal).Methods("POST")
	r.HandleFunc("/billing/cancel", h.Cancel).Methods("POST")
	r.HandleFunc("/billing/plans", h.Plans).Methods("GET")
	r.HandleFunc("/billing/payments", h.Payments).Methods("GET")
	r.HandleFunc("/billing/webhook", h.Webhook).Methods("POST")
}

// Checkout handles POST /billing/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		PlanID string `json:"planId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		h.writeError(w, "planId is required", http.StatusBadRequest)
		return
	}

	session, err := h.client.CreateCheckoutSession(r.Context(), user.ID.String(), user.Email, req.PlanID)
	if err != nil {
		h.upstreamError(w, r, "Failed to create checkout session", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"sessionId":   session.SessionID,
		"checkoutUrl": session.CheckoutURL,
	})
}

// Portal handles POST /billing/portal
func (h *Handler) Portal(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if user.BillingCustomerID == "" {
		h.writeError(w, "No billing account for this user", http.StatusBadRequest)
		return
	}

	session, err := h.client.CreatePortalSession(r.Context(), user.BillingCustomerID)
	if err != nil {
		h.upstreamError(w, r, "Failed to create portal session", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"portalUrl": session.PortalURL,
	})
}

// Cancel handles POST /billing/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if user.BillingSubscriptionID == "" {
		h.writeError(w, "No active subscription for this user", http.StatusBadRequest)
		return
	}

	if err := h.client.CancelSubscription(r.Context(), user.BillingSubscriptionID); err != nil {
		h.upstreamError(w, r, "Failed to cancel subscription", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Plans handles GET /billing/plans
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.client.ListPlans(r.Context())
	if err != nil {
		h.upstreamError(w, r, "Failed to list plans", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"plans":   plans,
	})
}

// Payments handles GET /billing/payments
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	payments, err := h.service.Payments(r.Context(), user.ID)
	if err != nil {
		h.upstreamError(w, r, "Failed to load payment history", err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"payments": payments,
	})
}

// Webhook handles POST /billing/webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.writeError(w, "Failed to read payload", http.StatusBadRequest)
		return
	}

	err = h.service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	case errors.Is(err, ErrInvalidSignature):
		h.log.Warn("", requestID(r), "Webhook signature rejected", nil)
		h.writeError(w, "Invalid signature", http.StatusUnauthorized)
	case errors.Is(err, ErrValidation):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrUserNotFound):
		h.writeError(w, "User not found", http.StatusNotFound)
	default:
		h.log.ErrorWithCode("", requestID(r), "Webhook processing failed", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// authenticate resolves the caller or writes the failure response.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, err := h.users.Authenticate(r.Context(), auth.TokenFromRequest(r))
	switch {
	case err == nil:
		return user, true
	case errors.Is(err, auth.ErrUnauthenticated):
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrUserNotFound):
		h.writeError(w, "User not found", http.StatusNotFound)
	default:
		h.log.ErrorWithCode("", requestID(r), "Authentication failed", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
	}
	return nil, false
}

func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.log.ErrorWithCode("", requestID(r), message, http.StatusInternalServerError, err, nil)
	h.writeError(w, message, http.StatusInternalServerError)
}

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
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
