// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const clientTimeout = 10 * time.Second

// Client is a thin pass-through to the subscription provider's REST API.
// It holds no billing logic: sessions, cancellation and plan listings are
// the provider's, these calls only relay them.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a provider client authenticated with the given API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

// CheckoutSession is the provider's hosted-payment session.
type CheckoutSession struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// PortalSession is the provider's hosted subscription-management session.
type PortalSession struct {
	PortalURL string `json:"portalUrl"`
}

// PlanInfo is one subscription plan as listed by the provider.
type PlanInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
	Description string `json:"description,omitempty"`
}

// CreateCheckoutSession opens a hosted checkout for the given user and plan.
func (c *Client) CreateCheckoutSession(ctx context.Context, userID, email, planID string) (*CheckoutSession, error) {
	body := map[string]string{"userId": userID, "email": email, "planId": planID}
	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePortalSession opens the provider's subscription-management portal for
// an existing customer.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (*PortalSession, error) {
	body := map[string]string{"customerId": customerID}
	var session PortalSession
	if err := c.do(ctx, http.MethodPost, "/v1/portal/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CancelSubscription requests cancellation of an active subscription. The
// provider confirms the downgrade asynchronously through the webhook.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	path := "/v1/subscriptions/" + subscriptionID + "/cancel"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// ListPlans returns the provider's plan catalog.
func (c *Client) ListPlans(ctx context.Context) ([]PlanInfo, error) {
	var out struct {
		Plans []PlanInfo `json:"plans"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/plans", nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode billing request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, path, resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", ErrUpstream, path, err)
		}
	}
	return nil
}
