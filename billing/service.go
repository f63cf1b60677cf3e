// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alchemist/server/auth"
	"alchemist/server/shared/logger"
)

// PlanStore is the slice of the user store billing needs: moving a user
// between plan tiers while recording the provider's references.
type PlanStore interface {
	SetPlan(ctx context.Context, id uuid.UUID, plan auth.Plan, customerID, subscriptionID string) error
}

// Service applies webhook events to payments and plans, and serves the
// payment history.
type Service struct {
	payments      Repository
	users         PlanStore
	webhookSecret string
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates a billing service.
func NewService(payments Repository, users PlanStore, webhookSecret string, log *logger.Logger) *Service {
	return &Service{
		payments:      payments,
		users:         users,
		webhookSecret: webhookSecret,
		log:           log,
		now:           time.Now,
	}
}

// HandleWebhook verifies and applies one raw webhook delivery.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !VerifySignature(payload, signature, s.webhookSecret) {
		return ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: malformed event payload", ErrValidation)
	}
	return s.applyEvent(ctx, &event)
}

func (s *Service) applyEvent(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.checkoutCompleted(ctx, event.Data)
	case EventPaymentFailed:
		return s.paymentFailed(ctx, event.Data)
	case EventPaymentRefunded:
		return s.paymentRefunded(ctx, event.Data)
	case EventSubscriptionCanceled:
		return s.subscriptionCanceled(ctx, event.Data)
	default:
		// Unknown events are acknowledged, not failed: the provider adds
		// types we do not consume.
		s.log.Warn("", "", "Ignoring unknown billing event", map[string]interface{}{"type": event.Type})
		return nil
	}
}

func (s *Service) checkoutCompleted(ctx context.Context, data EventData) error {
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid userId in event", ErrValidation)
	}

	now := s.now().UTC()
	payment := &Payment{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: data.AmountCents,
		Currency:    data.Currency,
		Status:      StatusCompleted,
		ExternalID:  data.TransactionID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return err
	}

	if err := s.users.SetPlan(ctx, userID, auth.PlanPro, data.CustomerID, data.SubscriptionID); err != nil {
		return err
	}

	s.log.Info(data.UserID, "", "Checkout completed, plan upgraded", map[string]interface{}{
		"transaction_id": data.TransactionID,
		"amount_cents":   data.AmountCents,
	})
	return nil
}

func (s *Service) paymentFailed(ctx context.Context, data EventData) error {
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid userId in event", ErrValidation)
	}

	now := s.now().UTC()
	payment := &Payment{
		ID:          uuid.New(),
		UserID:      userID,
		AmountCents: data.AmountCents,
		Currency:    data.Currency,
		Status:      StatusFailed,
		ExternalID:  data.TransactionID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return err
	}

	s.log.Warn(data.UserID, "", "Payment failed", map[string]interface{}{
		"transaction_id": data.TransactionID,
	})
	return nil
}

func (s *Service) paymentRefunded(ctx context.Context, data EventData) error {
	if data.TransactionID == "" {
		return fmt.Errorf("%w: missing transactionId in refund event", ErrValidation)
	}

	err := s.payments.UpdateStatusByExternalID(ctx, data.TransactionID, StatusRefunded)
	if errors.Is(err, ErrPaymentNotFound) {
		// Refund for a transaction we never recorded. Acknowledge so the
		// provider stops retrying, but keep a trace.
		s.log.Warn(data.UserID, "", "Refund for unknown transaction", map[string]interface{}{
			"transaction_id": data.TransactionID,
		})
		return nil
	}
	return err
}

func (s *Service) subscriptionCanceled(ctx context.Context, data EventData) error {
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid userId in event", ErrValidation)
	}

	if err := s.users.SetPlan(ctx, userID, auth.PlanFree, data.CustomerID, ""); err != nil {
		return err
	}

	s.log.Info(data.UserID, "", "Subscription canceled, plan downgraded", nil)
	return nil
}

// Payments returns a user's payment history, newest first.
func (s *Service) Payments(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}
