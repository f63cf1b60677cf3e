// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package impact defines the environmental-impact record attached to every
// query event and the rolling totals computed over them.
package impact

import (
	"errors"
	"math"
)

// FallbackWaterPerQueryML is the estimated water footprint applied to a
// query when no record carries explicit water-usage data. Responses built
// from this constant must flag it so callers can tell real data from the
// placeholder.
const FallbackWaterPerQueryML = 2.9

var (
	// ErrMissingMetrics is returned when a query event has no metrics record.
	ErrMissingMetrics = errors.New("environmental metrics are required")

	// ErrMissingTokenUsage is returned when a query event has no token usage record.
	ErrMissingTokenUsage = errors.New("token usage is required")

	// ErrNegativeTokens is returned when any token count is negative.
	ErrNegativeTokens = errors.New("token counts must not be negative")
)

// Efficiency tiers for a query. The field also accepts free text from
// upstream estimators.
const (
	EfficiencyLow    = "low"
	EfficiencyMedium = "medium"
	EfficiencyHigh   = "high"
)

// Metrics is the fixed-shape environmental-impact record for one query.
// Values are caller-supplied estimates, not independently verified.
type Metrics struct {
	EnergyUsage     float64 `bson:"energyUsage" json:"energyUsage"`         // kWh
	CarbonEmissions float64 `bson:"carbonEmissions" json:"carbonEmissions"` // grams CO2e
	WaterUsage      float64 `bson:"waterUsage" json:"waterUsage"`           // mL
	TokenCount      int     `bson:"tokenCount" json:"tokenCount"`
	Efficiency      string  `bson:"efficiency" json:"efficiency"`
}

// TokenUsage breaks down the token counts for one query.
type TokenUsage struct {
	Input       int `bson:"input" json:"input"`
	Output      int `bson:"output" json:"output"`
	Total       int `bson:"total" json:"total"`
	Reasoning   int `bson:"reasoning" json:"reasoning"`
	CachedInput int `bson:"cachedInput" json:"cachedInput"`
}

// Validate rejects negative token counts. All other metric values are
// accepted as-is.
func (u *TokenUsage) Validate() error {
	if u.Input < 0 || u.Output < 0 || u.Total < 0 || u.Reasoning < 0 || u.CachedInput < 0 {
		return ErrNegativeTokens
	}
	return nil
}

// Totals is a field-wise sum of metrics over a set of query events.
type Totals struct {
	TotalSearches        int     `json:"totalSearches"`
	TotalEnergyUsage     float64 `json:"totalEnergyUsage"`
	TotalCarbonEmissions float64 `json:"totalCarbonEmissions"`
	TotalWaterUsage      float64 `json:"totalWaterUsage"`
	TotalTokens          int     `json:"totalTokens"`
}

// Add accumulates one query's metrics into the totals.
func (t *Totals) Add(m Metrics) {
	t.TotalSearches++
	t.TotalEnergyUsage += m.EnergyUsage
	t.TotalCarbonEmissions += m.CarbonEmissions
	t.TotalWaterUsage += m.WaterUsage
	t.TotalTokens += m.TokenCount
}

// Rounded returns the totals with energy rounded to 4 decimal places and
// carbon and water to 2, matching what the UI renders.
func (t Totals) Rounded() Totals {
	t.TotalEnergyUsage = round(t.TotalEnergyUsage, 4)
	t.TotalCarbonEmissions = round(t.TotalCarbonEmissions, 2)
	t.TotalWaterUsage = round(t.TotalWaterUsage, 2)
	return t
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
