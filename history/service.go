// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"alchemist/server/impact"
	"alchemist/server/shared/logger"
)

// MaxRecentGlobal caps the public activity feed.
const MaxRecentGlobal = 10

// Service records query events and computes usage aggregations on demand.
// Aggregation always reads the raw event records; there is no materialized
// rollup to drift out of sync under concurrent writes.
type Service struct {
	repo  Repository
	names NameResolver
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a history service.
func NewService(repo Repository, names NameResolver, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		names: names,
		log:   log,
		now:   time.Now,
	}
}

// ValidateInput checks the full payload of a record without touching
// storage, so callers can reject bad input before spending quota.
func (s *Service) ValidateInput(userID uuid.UUID, query, response string, metrics *impact.Metrics, tokens *impact.TokenUsage) error {
	switch {
	case userID == uuid.Nil:
		return fmt.Errorf("%w: userId is required", ErrValidation)
	case query == "":
		return fmt.Errorf("%w: query is required", ErrValidation)
	case response == "":
		return fmt.Errorf("%w: response is required", ErrValidation)
	case metrics == nil:
		return fmt.Errorf("%w: %s", ErrValidation, impact.ErrMissingMetrics)
	case tokens == nil:
		return fmt.Errorf("%w: %s", ErrValidation, impact.ErrMissingTokenUsage)
	}
	if err := tokens.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return nil
}

// Record inserts an immutable query record with a server-assigned timestamp.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, query, response string, metrics *impact.Metrics, tokens *impact.TokenUsage) (*Record, error) {
	if err := s.ValidateInput(userID, query, response, metrics, tokens); err != nil {
		return nil, err
	}

	record := &Record{
		ID:         uuid.New(),
		UserID:     userID,
		Query:      query,
		Response:   response,
		Metrics:    *metrics,
		TokenUsage: *tokens,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info(userID.String(), "", "Recorded query usage", map[string]interface{}{
		"tokens":     record.Metrics.TokenCount,
		"energy_kwh": record.Metrics.EnergyUsage,
		"water_ml":   record.Metrics.WaterUsage,
	})
	return record, nil
}

// List returns a user's records, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// Clear deletes all of one user's records.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	deleted, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info(userID.String(), "", "Cleared history", map[string]interface{}{"deleted": deleted})
	return deleted, nil
}

// AggregateDaily sums a user's metrics over one UTC calendar day. A zero
// date means today. An empty day yields all-zero totals, not an error.
func (s *Service) AggregateDaily(ctx context.Context, userID uuid.UUID, date time.Time) (impact.Totals, error) {
	if userID == uuid.Nil {
		return impact.Totals{}, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if date.IsZero() {
		date = s.now()
	}
	from, to := utcDayBounds(date)

	records, err := s.repo.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return impact.Totals{}, err
	}
	return sum(records).Rounded(), nil
}

// AggregateYearly sums a user's metrics over one calendar year and also
// returns the per-day breakdown, ascending by date.
func (s *Service) AggregateYearly(ctx context.Context, userID uuid.UUID, year int) (impact.Totals, []DayTotals, error) {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	days, err := s.AggregateRange(ctx, userID, from, to)
	if err != nil {
		return impact.Totals{}, nil, err
	}

	var totals impact.Totals
	for _, d := range days {
		totals.TotalSearches += d.Totals.TotalSearches
		totals.TotalEnergyUsage += d.Totals.TotalEnergyUsage
		totals.TotalCarbonEmissions += d.Totals.TotalCarbonEmissions
		totals.TotalWaterUsage += d.Totals.TotalWaterUsage
		totals.TotalTokens += d.Totals.TotalTokens
	}
	return totals.Rounded(), days, nil
}

// AggregateRange groups a user's records by UTC calendar day over [start,
// end) and returns per-day totals sorted ascending by date string.
func (s *Service) AggregateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]DayTotals, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}

	records, err := s.repo.ListByUserBetween(ctx, userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*impact.Totals)
	for _, rec := range records {
		key := rec.CreatedAt.UTC().Format("2006-01-02")
		t, ok := byDay[key]
		if !ok {
			t = &impact.Totals{}
			byDay[key] = t
		}
		t.Add(rec.Metrics)
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	days := make([]DayTotals, 0, len(keys))
	for _, k := range keys {
		days = append(days, DayTotals{Date: k, Totals: byDay[k].Rounded()})
	}
	return days, nil
}

// AggregateGlobalDaily sums prompt count and water usage across all users
// for the current UTC day. When no record carries explicit water data the
// documented per-query fallback is applied and flagged, so end users never
// see a silent zero.
func (s *Service) AggregateGlobalDaily(ctx context.Context) (GlobalDaily, error) {
	from, to := utcDayBounds(s.now())

	records, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return GlobalDaily{}, err
	}

	out := GlobalDaily{TotalPrompts: len(records)}
	hasWaterData := false
	for _, rec := range records {
		if rec.Metrics.WaterUsage > 0 {
			hasWaterData = true
		}
		out.TotalWaterUsage += rec.Metrics.WaterUsage
	}

	if len(records) > 0 && !hasWaterData {
		out.TotalWaterUsage = impact.FallbackWaterPerQueryML * float64(len(records))
		out.Note = "water usage estimated from per-query fallback"
	}

	var totals impact.Totals
	totals.TotalWaterUsage = out.TotalWaterUsage
	out.TotalWaterUsage = totals.Rounded().TotalWaterUsage
	return out, nil
}

// RecentGlobal returns the public activity feed, capped at MaxRecentGlobal,
// with user names truncated to the first name.
func (s *Service) RecentGlobal(ctx context.Context, limit int) ([]RecentActivity, error) {
	if limit <= 0 || limit > MaxRecentGlobal {
		limit = MaxRecentGlobal
	}

	records, err := s.repo.RecentGlobal(ctx, limit)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string)
	feed := make([]RecentActivity, 0, len(records))
	for _, rec := range records {
		name, ok := names[rec.UserID]
		if !ok {
			full, err := s.names.DisplayName(ctx, rec.UserID)
			if err != nil {
				full = "Anonymous"
			}
			name = FirstName(full)
			names[rec.UserID] = name
		}
		feed = append(feed, RecentActivity{
			UserName:  name,
			Query:     rec.Query,
			Metrics:   rec.Metrics,
			CreatedAt: rec.CreatedAt,
		})
	}
	return feed, nil
}

// FirstName truncates a full name to its first word.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Anonymous"
	}
	return fields[0]
}

func sum(records []Record) impact.Totals {
	var totals impact.Totals
	for _, rec := range records {
		totals.Add(rec.Metrics)
	}
	return totals
}

func utcDayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}
