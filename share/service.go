// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package share

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"alchemist/server/impact"
	"alchemist/server/shared/logger"
)

// Service creates and resolves shared search snapshots.
type Service struct {
	repo    Repository
	baseURL string
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates a share service. baseURL is the public prefix share
// links are built from.
func NewService(repo Repository, baseURL string, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

// Create publishes a snapshot and returns its id and public URL.
func (s *Service) Create(ctx context.Context, query, response string, metrics *impact.Metrics, tokens *impact.TokenUsage) (string, string, error) {
	switch {
	case query == "":
		return "", "", fmt.Errorf("%w: query is required", ErrValidation)
	case response == "":
		return "", "", fmt.Errorf("%w: response is required", ErrValidation)
	case metrics == nil:
		return "", "", fmt.Errorf("%w: %s", ErrValidation, impact.ErrMissingMetrics)
	case tokens == nil:
		return "", "", fmt.Errorf("%w: %s", ErrValidation, impact.ErrMissingTokenUsage)
	}

	shareID, err := NewShareID()
	if err != nil {
		return "", "", err
	}

	snapshot := &SharedSearch{
		ID:          uuid.New(),
		ShareID:     shareID,
		Query:       query,
		Response:    response,
		Metrics:     *metrics,
		TokenUsage:  *tokens,
		AccessCount: 0,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, snapshot); err != nil {
		return "", "", err
	}

	s.log.Info("", "", "Published shared search", map[string]interface{}{"share_id": shareID})
	return shareID, s.baseURL + "/" + shareID, nil
}

// Get resolves a snapshot, incrementing its access counter by exactly one.
// The returned record carries the post-increment count.
func (s *Service) Get(ctx context.Context, shareID string) (*SharedSearch, error) {
	if shareID == "" {
		return nil, fmt.Errorf("%w: shareId is required", ErrValidation)
	}
	return s.repo.IncrementAccess(ctx, shareID)
}
