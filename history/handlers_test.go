// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alchemist/server/auth"
	"alchemist/server/impact"
	"alchemist/server/shared/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// mockUsers implements auth.UserRepository in memory for handler tests
type mockUsers struct {
	users map[uuid.UUID]*auth.User
}

func newMockUsers() *mockUsers {
	return &mockUsers{users: make(map[uuid.UUID]*auth.User)}
}

func (m *mockUsers) Create(ctx context.Context, user *auth.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, auth.ErrUserNotFound
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *mockUsers) ResetDailyCounter(ctx context.Context, id uuid.UUID, startOfDay, now time.Time) (bool, error) {
	u, ok := m.users[id]
	if !ok || !u.SearchesResetDate.Before(startOfDay) {
		return false, nil
	}
	u.SearchesUsed = 0
	u.SearchesResetDate = now
	return true, nil
}

func (m *mockUsers) ConsumeSearch(ctx context.Context, id uuid.UUID, limit int) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	if u.Plan != auth.PlanPro && u.SearchesUsed >= limit {
		return nil, auth.ErrQuotaExceeded
	}
	u.SearchesUsed++
	cp := *u
	return &cp, nil
}

func (m *mockUsers) SetPlan(ctx context.Context, id uuid.UUID, plan auth.Plan, customerID, subscriptionID string) error {
	u, ok := m.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.Plan = plan
	return nil
}

type testEnv struct {
	router *mux.Router
	repo   *MockRepository
	users  *mockUsers
	userID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.New("history-test")
	users := newMockUsers()
	quota := auth.NewService(users, auth.NewTokenIssuer(testSecret, log), log, 3)

	user, _, err := quota.Signup(context.Background(), "ada@example.com", "correct-horse", "Ada Lovelace")
	require.NoError(t, err)

	repo := NewMockRepository()
	svc := newTestService(repo, &MockNames{names: map[uuid.UUID]string{user.ID: user.Name}})

	h := NewHandler(svc, quota, log)
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	return &testEnv{router: r, repo: repo, users: users, userID: user.ID}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func addBody(userID uuid.UUID) string {
	return fmt.Sprintf(`{
		"userId": %q,
		"query": "how heavy is a cloud",
		"response": "around a million tonnes",
		"metrics": {"energyUsage": 0.0012, "carbonEmissions": 0.6, "waterUsage": 2.9, "tokenCount": 150, "efficiency": "medium"},
		"tokenUsage": {"input": 50, "output": 100, "total": 150}
	}`, userID)
}

func TestAddHandler(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/history/add", addBody(env.userID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success      bool   `json:"success"`
		SearchesUsed int    `json:"searchesUsed"`
		Record       Record `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SearchesUsed)
	assert.Equal(t, env.userID, resp.Record.UserID)
	assert.False(t, resp.Record.CreatedAt.IsZero())
}

func TestAddHandlerQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		w := env.do("POST", "/history/add", addBody(env.userID))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do("POST", "/history/add", addBody(env.userID))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// The denied request must not have written a record
	records, err := env.repo.ListByUser(context.Background(), env.userID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestAddHandlerValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{oops`, http.StatusBadRequest},
		{"missing user", `{"query":"q","response":"r"}`, http.StatusBadRequest},
		{"unknown user", fmt.Sprintf(`{"userId":%q,"query":"q","response":"r","metrics":{},"tokenUsage":{}}`, uuid.New()), http.StatusNotFound},
		{"missing metrics", fmt.Sprintf(`{"userId":%q,"query":"q","response":"r","tokenUsage":{}}`, env.userID), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("POST", "/history/add", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAddHandlerRejectedRequestSpendsNoQuota(t *testing.T) {
	env := newTestEnv(t)

	// A payload missing its query must be rejected before the daily
	// counter moves
	w := env.do("POST", "/history/add", fmt.Sprintf(
		`{"userId":%q,"response":"r","metrics":{"tokenCount":1},"tokenUsage":{"input":1,"output":1,"total":2}}`,
		env.userID))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	user, err := env.users.GetByID(context.Background(), env.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.SearchesUsed)

	// The full free allowance is still available afterwards
	for i := 0; i < 3; i++ {
		w := env.do("POST", "/history/add", addBody(env.userID))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestGlobalDailyHandler(t *testing.T) {
	env := newTestEnv(t)

	env.do("POST", "/history/add", addBody(env.userID))
	env.do("POST", "/history/add", addBody(env.userID))

	w := env.do("GET", "/history/global-daily", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success         bool    `json:"success"`
		TotalPrompts    int     `json:"totalPrompts"`
		TotalWaterUsage float64 `json:"totalWaterUsage"`
		Note            string  `json:"note"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalPrompts)
	assert.Equal(t, 5.8, resp.TotalWaterUsage)
	assert.Empty(t, resp.Note, "recorded water data must not be flagged as a fallback")
}

func TestGlobalDailyHandlerFallbackNote(t *testing.T) {
	env := newTestEnv(t)

	// Seeded records carry no water data, so the rollup must use the
	// per-query fallback and say so
	seed(env.repo, env.userID, time.Now().UTC(), impact.Metrics{TokenCount: 10})

	w := env.do("GET", "/history/global-daily", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalPrompts    int     `json:"totalPrompts"`
		TotalWaterUsage float64 `json:"totalWaterUsage"`
		Note            string  `json:"note"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalPrompts)
	assert.Equal(t, 2.9, resp.TotalWaterUsage)
	assert.NotEmpty(t, resp.Note)
}

func TestGetAndClearHandlers(t *testing.T) {
	env := newTestEnv(t)

	env.do("POST", "/history/add", addBody(env.userID))
	env.do("POST", "/history/add", addBody(env.userID))

	w := env.do("GET", "/history/get?userId="+env.userID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var getResp struct {
		History []Record `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	assert.Len(t, getResp.History, 2)

	w = env.do("DELETE", "/history/clear?userId="+env.userID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var clearResp struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clearResp))
	assert.Equal(t, int64(2), clearResp.Deleted)

	// Missing userId is a validation failure
	w = env.do("GET", "/history/get", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do("DELETE", "/history/clear", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyUsageHandler(t *testing.T) {
	env := newTestEnv(t)

	env.do("POST", "/history/add", addBody(env.userID))

	today := time.Now().UTC().Format("2006-01-02")
	w := env.do("GET", "/history/daily-usage?userId="+env.userID.String()+"&date="+today, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Usage impact.Totals `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Usage.TotalSearches)
	assert.Equal(t, 150, resp.Usage.TotalTokens)

	w = env.do("GET", "/history/daily-usage?userId="+env.userID.String()+"&date=03-02-2026", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentGlobalHandler(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 12; i++ {
		w := env.do("POST", "/history/add", addBody(env.userID))
		if w.Code == http.StatusTooManyRequests {
			// Free quota only allows 3; seed the rest directly
			seed(env.repo, env.userID, time.Now().UTC(), impact.Metrics{})
		}
	}

	w := env.do("GET", "/history/recent-global?limit=100", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Activity []RecentActivity `json:"activity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Activity, MaxRecentGlobal)
	for _, item := range resp.Activity {
		assert.Equal(t, "Ada", item.UserName)
	}
}

func TestCalendarUsageHandler(t *testing.T) {
	env := newTestEnv(t)

	env.do("POST", "/history/add", addBody(env.userID))

	year := time.Now().UTC().Year()
	today := time.Now().UTC().Format("2006-01-02")
	w := env.do("GET", fmt.Sprintf("/calendar/usage?userId=%s&year=%d&date=%s", env.userID, year, today), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Year         int           `json:"year"`
		YearlyTotals impact.Totals `json:"yearlyTotals"`
		DailyTotals  []DayTotals   `json:"dailyTotals"`
		DateTotals   impact.Totals `json:"dateTotals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, year, resp.Year)
	assert.Equal(t, 1, resp.YearlyTotals.TotalSearches)
	require.Len(t, resp.DailyTotals, 1)
	assert.Equal(t, today, resp.DailyTotals[0].Date)
	assert.Equal(t, resp.YearlyTotals, resp.DateTotals)

	w = env.do("GET", "/calendar/usage?userId="+env.userID.String()+"&year=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
