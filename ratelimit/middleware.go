// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"alchemist/server/shared/logger"
)

// Middleware enforces the limiter on every request of the wrapped router,
// keyed by client IP under the given prefix. Used on the auth router to slow
// credential stuffing. Limiter outages fail closed: a 500 rather than an
// unmetered signin attempt.
func Middleware(limiter Limiter, keyPrefix string, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyPrefix + ":" + clientIP(r)

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.ErrorWithCode("", r.Header.Get("X-Request-ID"), "Rate limit check failed", http.StatusInternalServerError, err, map[string]interface{}{
					"key": key,
				})
				writeLimitError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

			if !decision.Allowed {
				retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				log.Warn("", r.Header.Get("X-Request-ID"), "Rate limit exceeded", map[string]interface{}{
					"key":  key,
					"path": r.URL.Path,
				})
				writeLimitError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeLimitError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
