// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package server wires configuration, storage, services and route handlers
// into the running HTTP process.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alchemist/server/auth"
	"alchemist/server/billing"
	"alchemist/server/history"
	"alchemist/server/ratelimit"
	"alchemist/server/share"
	"alchemist/server/shared/logger"
)

// Deps carries everything the router serves.
type Deps struct {
	Log     *logger.Logger
	Auth    *auth.Handler
	History *history.Handler
	Share   *share.Handler
	Billing *billing.Handler

	// AuthLimiter throttles the credential endpoints by client IP.
	AuthLimiter ratelimit.Limiter

	// Pinger backs the health check.
	Pinger interface {
		Ping(ctx context.Context) error
	}
}

// NewRouter builds the full route table.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(d.Log))

	r.HandleFunc("/healthz", healthHandler(d)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Credential endpoints sit behind the IP rate limiter; everything else
	// is governed by the per-user daily quota instead.
	authRouter := r.NewRoute().Subrouter()
	authRouter.Use(ratelimit.Middleware(d.AuthLimiter, "auth", d.Log))
	d.Auth.RegisterRoutes(authRouter)

	d.History.RegisterRoutes(r)
	d.Share.RegisterRoutes(r)
	d.Billing.RegisterRoutes(r)

	return r
}

func healthHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := d.Pinger.Ping(ctx); err != nil {
			d.Log.Error("", r.Header.Get("X-Request-ID"), "Health check failed", map[string]interface{}{"error": err.Error()})
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"service":   "alchemist-server",
			"timestamp": time.Now().UTC(),
		})
	}
}
