// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the provider's hex HMAC-SHA256 of the raw payload.
const SignatureHeader = "X-Billing-Signature"

// Webhook event types the provider sends.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"
	EventSubscriptionCanceled = "subscription.canceled"
)

// Event is one webhook delivery from the billing provider.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the provider-side references of the affected
// transaction. Fields are present or absent per event type.
type EventData struct {
	UserID         string `json:"userId"`
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId"`
	TransactionID  string `json:"transactionId"`
	AmountCents    int64  `json:"amountCents"`
	Currency       string `json:"currency"`
}

// VerifySignature checks the provider's HMAC-SHA256 over the raw payload.
// Comparison is constant-time.
func VerifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the hex HMAC-SHA256 of payload. Tests and the provider's
// delivery side use the same construction VerifySignature checks.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
