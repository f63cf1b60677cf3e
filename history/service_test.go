// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alchemist/server/impact"
	"alchemist/server/shared/logger"
)

// MockRepository implements Repository in memory for testing
type MockRepository struct {
	mu      sync.Mutex
	records []Record
}

func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

func (m *MockRepository) Insert(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRepository) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.UserID == userID && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockRepository) ListBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRepository) RecentGlobal(ctx context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []Record
	var deleted int64
	for _, r := range m.records {
		if r.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// MockNames implements NameResolver with a fixed map
type MockNames struct {
	names map[uuid.UUID]string
}

func (m *MockNames) DisplayName(ctx context.Context, id uuid.UUID) (string, error) {
	if name, ok := m.names[id]; ok {
		return name, nil
	}
	return "", ErrNotFound
}

func newTestService(repo *MockRepository, names *MockNames) *Service {
	if names == nil {
		names = &MockNames{names: map[uuid.UUID]string{}}
	}
	return NewService(repo, names, logger.New("history-test"))
}

func seed(repo *MockRepository, userID uuid.UUID, at time.Time, m impact.Metrics) {
	repo.records = append(repo.records, Record{
		ID:        uuid.New(),
		UserID:    userID,
		Query:     "q",
		Response:  "r",
		Metrics:   m,
		CreatedAt: at,
	})
}

func TestRecordValidation(t *testing.T) {
	svc := newTestService(NewMockRepository(), nil)
	ctx := context.Background()
	userID := uuid.New()
	metrics := &impact.Metrics{EnergyUsage: 0.001}
	tokens := &impact.TokenUsage{Input: 10, Output: 20, Total: 30}

	tests := []struct {
		name string
		call func() error
	}{
		{"missing user", func() error {
			_, err := svc.Record(ctx, uuid.Nil, "q", "r", metrics, tokens)
			return err
		}},
		{"missing query", func() error {
			_, err := svc.Record(ctx, userID, "", "r", metrics, tokens)
			return err
		}},
		{"missing response", func() error {
			_, err := svc.Record(ctx, userID, "q", "", metrics, tokens)
			return err
		}},
		{"missing metrics", func() error {
			_, err := svc.Record(ctx, userID, "q", "r", nil, tokens)
			return err
		}},
		{"missing token usage", func() error {
			_, err := svc.Record(ctx, userID, "q", "r", metrics, nil)
			return err
		}},
		{"negative tokens", func() error {
			_, err := svc.Record(ctx, userID, "q", "r", metrics, &impact.TokenUsage{Input: -1})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrValidation)
		})
	}
}

func TestRecordAssignsServerTimestamp(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	fixed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	rec, err := svc.Record(context.Background(), uuid.New(), "q", "r",
		&impact.Metrics{}, &impact.TokenUsage{})
	require.NoError(t, err)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.NotEqual(t, uuid.Nil, rec.ID)
}

func TestAggregateDailySumsAndRounds(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	userID := uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seed(repo, userID, day.Add(1*time.Hour), impact.Metrics{
		EnergyUsage: 0.00011, CarbonEmissions: 0.456, WaterUsage: 2.911, TokenCount: 100,
	})
	seed(repo, userID, day.Add(5*time.Hour), impact.Metrics{
		EnergyUsage: 0.00022, CarbonEmissions: 1.111, WaterUsage: 3.333, TokenCount: 250,
	})
	// Outside the day: previous evening and the next morning
	seed(repo, userID, day.Add(-1*time.Hour), impact.Metrics{EnergyUsage: 5})
	seed(repo, userID, day.Add(25*time.Hour), impact.Metrics{EnergyUsage: 7})
	// Another user's record on the same day
	seed(repo, uuid.New(), day.Add(2*time.Hour), impact.Metrics{EnergyUsage: 9})

	totals, err := svc.AggregateDaily(context.Background(), userID, day)
	require.NoError(t, err)

	assert.Equal(t, 2, totals.TotalSearches)
	assert.Equal(t, 0.0003, totals.TotalEnergyUsage) // 0.00033 rounded to 4 places
	assert.Equal(t, 1.57, totals.TotalCarbonEmissions)
	assert.Equal(t, 6.24, totals.TotalWaterUsage)
	assert.Equal(t, 350, totals.TotalTokens)
}

func TestAggregateDailyEmptyIsZero(t *testing.T) {
	svc := newTestService(NewMockRepository(), nil)

	totals, err := svc.AggregateDaily(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, impact.Totals{}, totals)
}

func TestAggregateDailyDefaultsToToday(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	fixed := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	userID := uuid.New()

	seed(repo, userID, fixed.Add(-1*time.Hour), impact.Metrics{TokenCount: 42})
	seed(repo, userID, fixed.AddDate(0, 0, -1), impact.Metrics{TokenCount: 99})

	totals, err := svc.AggregateDaily(context.Background(), userID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, totals.TotalSearches)
	assert.Equal(t, 42, totals.TotalTokens)
}

func TestAggregateYearlyMatchesDaily(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	userID := uuid.New()
	day := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

	seed(repo, userID, day.Add(3*time.Hour), impact.Metrics{
		EnergyUsage: 0.0012, CarbonEmissions: 2.5, WaterUsage: 4.2, TokenCount: 300,
	})
	seed(repo, userID, day.Add(9*time.Hour), impact.Metrics{
		EnergyUsage: 0.0034, CarbonEmissions: 1.5, WaterUsage: 1.8, TokenCount: 200,
	})

	daily, err := svc.AggregateDaily(context.Background(), userID, day)
	require.NoError(t, err)

	yearly, days, err := svc.AggregateYearly(context.Background(), userID, 2026)
	require.NoError(t, err)

	// The year holds exactly one active day, so yearly equals daily
	assert.Equal(t, daily, yearly)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-07-14", days[0].Date)
	assert.Equal(t, daily, days[0].Totals)
}

func TestAggregateRangeSortedAscending(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	userID := uuid.New()

	d1 := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{d1, d2, d3} {
		seed(repo, userID, d, impact.Metrics{TokenCount: 1})
	}

	days, err := svc.AggregateRange(context.Background(), userID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, days, 3)
	assert.Equal(t, "2026-03-01", days[0].Date)
	assert.Equal(t, "2026-03-03", days[1].Date)
	assert.Equal(t, "2026-03-05", days[2].Date)
}

func TestAggregateGlobalDaily(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seed(repo, uuid.New(), now.Add(-1*time.Hour), impact.Metrics{WaterUsage: 2.5})
	seed(repo, uuid.New(), now.Add(-2*time.Hour), impact.Metrics{WaterUsage: 3.5})

	global, err := svc.AggregateGlobalDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, global.TotalPrompts)
	assert.Equal(t, 6.0, global.TotalWaterUsage)
	assert.Empty(t, global.Note, "real data must not be flagged as fallback")
}

func TestAggregateGlobalDailyFallback(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Three prompts today, none carrying water data
	for i := 0; i < 3; i++ {
		seed(repo, uuid.New(), now.Add(-time.Duration(i+1)*time.Hour), impact.Metrics{TokenCount: 10})
	}

	global, err := svc.AggregateGlobalDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, global.TotalPrompts)
	assert.Equal(t, 8.7, global.TotalWaterUsage) // 3 * 2.9 fallback
	assert.NotEmpty(t, global.Note, "fallback data must be flagged")
}

func TestAggregateGlobalDailyEmpty(t *testing.T) {
	svc := newTestService(NewMockRepository(), nil)

	global, err := svc.AggregateGlobalDaily(context.Background())
	require.NoError(t, err)
	assert.Zero(t, global.TotalPrompts)
	assert.Zero(t, global.TotalWaterUsage)
	assert.Empty(t, global.Note)
}

func TestRecentGlobalCapAndFirstNames(t *testing.T) {
	repo := NewMockRepository()
	ada := uuid.New()
	grace := uuid.New()
	ghost := uuid.New()
	names := &MockNames{names: map[uuid.UUID]string{
		ada:   "Ada Lovelace",
		grace: "Grace Hopper",
	}}
	svc := newTestService(repo, names)

	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		owner := ada
		switch i % 3 {
		case 1:
			owner = grace
		case 2:
			owner = ghost
		}
		seed(repo, owner, base.Add(time.Duration(i)*time.Minute), impact.Metrics{})
	}

	feed, err := svc.RecentGlobal(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, feed, MaxRecentGlobal, "feed is capped regardless of requested limit")

	for _, item := range feed {
		switch item.UserName {
		case "Ada", "Grace", "Anonymous":
		default:
			t.Errorf("unexpected feed name %q: full names must not leak", item.UserName)
		}
	}
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Ada", FirstName("Ada Lovelace"))
	assert.Equal(t, "Ada", FirstName("Ada"))
	assert.Equal(t, "Anonymous", FirstName("  "))
	assert.Equal(t, "Anonymous", FirstName(""))
}

func TestClear(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, nil)
	userID := uuid.New()
	other := uuid.New()

	seed(repo, userID, time.Now(), impact.Metrics{})
	seed(repo, userID, time.Now(), impact.Metrics{})
	seed(repo, other, time.Now(), impact.Metrics{})

	deleted, err := svc.Clear(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := svc.List(context.Background(), other, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "other users' records survive a clear")
}
