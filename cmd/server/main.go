// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the Alchemist AI server.
//
// The server backs the Alchemist AI web application:
// - Records AI queries with their estimated environmental impact
// - Aggregates per-user and global usage on demand
// - Manages accounts, plans and the daily free-tier quota
// - Relays checkout/portal/cancel flows to the billing provider
// - Publishes link-shareable search snapshots
//
// Usage:
//
//	./server
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	APP_ENV - "development" or "production" (default: production)
//	MONGODB_URI - MongoDB connection string (required)
//	MONGODB_DATABASE - database name (default: alchemist)
//	JWT_SECRET - token signing secret, at least 32 characters (required)
//	REDIS_URL - Redis URL for the auth rate limiter (optional)
//	BILLING_API_KEY - billing provider API key (required)
//	BILLING_WEBHOOK_SECRET - webhook HMAC secret (required)
//	BILLING_BASE_URL - billing provider base URL
//	SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD - outbound mail (required)
//	SHARE_BASE_URL - public prefix for share links
//	FREE_DAILY_SEARCHES - free-plan daily quota (default: 3)
//	AUTH_RATE_LIMIT_MAX, AUTH_RATE_LIMIT_WINDOW - auth endpoint limiter
//	ALCHEMIST_CONFIG - optional YAML overrides file
package main

import (
	"fmt"
	"os"

	"alchemist/server/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "alchemist-server: %v\n", err)
		os.Exit(1)
	}
}
