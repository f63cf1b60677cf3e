// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"alchemist/server/auth"
	"alchemist/server/impact"
	"alchemist/server/shared/logger"
)

// Handler provides the HTTP surface for query history and usage aggregation.
type Handler struct {
	service *Service
	quota   *auth.Service
	log     *logger.Logger
}

// NewHandler creates a history handler. quota enforces the daily free-tier
// limit when a query is recorded.
func NewHandler(service *Service, quota *auth.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, quota: quota, log: log}
}

// RegisterRoutes registers the history and calendar routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/history/add", h.Add).Methods("POST")
	r.HandleFunc("/history/get", h.Get).Methods("GET")
	r.HandleFunc("/history/clear", h.Clear).Methods("DELETE")
	r.HandleFunc("/history/daily-usage", h.DailyUsage).Methods("GET")
	r.HandleFunc("/history/recent-global", h.RecentGlobal).Methods("GET")
	r.HandleFunc("/history/global-daily", h.GlobalDaily).Methods("GET")
	r.HandleFunc("/calendar/usage", h.CalendarUsage).Methods("GET")
}

type addRequest struct {
	UserID     string             `json:"userId"`
	Query      string             `json:"query"`
	Response   string             `json:"response"`
	Metrics    *impact.Metrics    `json:"metrics"`
	TokenUsage *impact.TokenUsage `json:"tokenUsage"`
}

// Add handles POST /history/add. The payload is fully validated first, then
// the daily quota is claimed, then the record is stored: a rejected request
// spends no quota, and a quota-denied request writes nothing.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, "A valid userId is required", http.StatusBadRequest)
		return
	}

	if err := h.service.ValidateInput(userID, req.Query, req.Response, req.Metrics, req.TokenUsage); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.quota.ConsumeSearch(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrQuotaExceeded):
			h.writeError(w, "Daily search quota exceeded", http.StatusTooManyRequests)
		case errors.Is(err, auth.ErrUserNotFound):
			h.writeError(w, "User not found", http.StatusNotFound)
		default:
			h.log.ErrorWithCode(req.UserID, requestID(r), "Quota check failed", http.StatusInternalServerError, err, nil)
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	record, err := h.service.Record(r.Context(), userID, req.Query, req.Response, req.Metrics, req.TokenUsage)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.ErrorWithCode(req.UserID, requestID(r), "Failed to record usage", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"record":       record,
		"searchesUsed": user.SearchesUsed,
	})
}

// Get handles GET /history/get?userId=&limit=
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	records, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		h.log.ErrorWithCode(userID.String(), requestID(r), "Failed to list history", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []Record{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": records,
	})
}

// Clear handles DELETE /history/clear?userId=
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Clear(r.Context(), userID)
	if err != nil {
		h.log.ErrorWithCode(userID.String(), requestID(r), "Failed to clear history", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}

// DailyUsage handles GET /history/daily-usage?userId=&date=
func (h *Handler) DailyUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var date time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		var err error
		date, err = time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, "date must be formatted YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	totals, err := h.service.AggregateDaily(r.Context(), userID, date)
	if err != nil {
		h.log.ErrorWithCode(userID.String(), requestID(r), "Daily aggregation failed", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"usage":   totals,
	})
}

// RecentGlobal handles GET /history/recent-global?limit=
func (h *Handler) RecentGlobal(w http.ResponseWriter, r *http.Request) {
	limit := MaxRecentGlobal
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	feed, err := h.service.RecentGlobal(r.Context(), limit)
	if err != nil {
		h.log.ErrorWithCode("", requestID(r), "Recent activity query failed", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if feed == nil {
		feed = []RecentActivity{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"activity": feed,
	})
}

// GlobalDaily handles GET /history/global-daily and returns the cross-user
// prompt count and water total for the current UTC day. When the water
// figure comes from the per-query fallback the response carries a note.
func (h *Handler) GlobalDaily(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.AggregateGlobalDaily(r.Context())
	if err != nil {
		h.log.ErrorWithCode("", requestID(r), "Global daily aggregation failed", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	body := map[string]interface{}{
		"success":         true,
		"totalPrompts":    totals.TotalPrompts,
		"totalWaterUsage": totals.TotalWaterUsage,
	}
	if totals.Note != "" {
		body["note"] = totals.Note
	}
	h.writeJSON(w, http.StatusOK, body)
}

// CalendarUsage handles GET /calendar/usage?userId=&year=&date= and returns
// the yearly totals, an optional specific-date rollup, and the per-day map
// the calendar UI renders from.
func (h *Handler) CalendarUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	year := time.Now().UTC().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		var err error
		year, err = strconv.Atoi(v)
		if err != nil {
			h.writeError(w, "year must be an integer", http.StatusBadRequest)
			return
		}
	}

	totals, days, err := h.service.AggregateYearly(r.Context(), userID, year)
	if err != nil {
		h.log.ErrorWithCode(userID.String(), requestID(r), "Yearly aggregation failed", http.StatusInternalServerError, err, nil)
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	body := map[string]interface{}{
		"success":      true,
		"year":         year,
		"yearlyTotals": totals,
		"dailyTotals":  days,
	}

	if v := r.URL.Query().Get("date"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, "date must be formatted YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		dateTotals, err := h.service.AggregateDaily(r.Context(), userID, date)
		if err != nil {
			h.log.ErrorWithCode(userID.String(), requestID(r), "Daily aggregation failed", http.StatusInternalServerError, err, nil)
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		body["dateTotals"] = dateTotals
	}

	h.writeJSON(w, http.StatusOK, body)
}

// userIDParam extracts and validates the userId query parameter.
func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		h.writeError(w, "userId is required", http.StatusBadRequest)
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, "A valid userId is required", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return userID, true
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
