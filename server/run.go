// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"alchemist/server/auth"
	"alchemist/server/billing"
	"alchemist/server/history"
	"alchemist/server/ratelimit"
	"alchemist/server/share"
	"alchemist/server/shared/config"
	"alchemist/server/shared/logger"
	"alchemist/server/store"
)

const shutdownTimeout = 15 * time.Second

// Run is the exported entry point for the server.
//
// It loads and validates configuration, connects storage, wires all
// services and blocks serving HTTP until SIGINT/SIGTERM, then drains
// in-flight requests before returning.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New("alchemist-server")
	log.Info("", "", "Starting Alchemist AI server", map[string]interface{}{
		"port":        cfg.Port,
		"environment": cfg.Environment,
	})

	ctx := context.Background()
	st, err := store.Connect(ctx, store.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.Close(closeCtx)
	}()

	if err := st.EnsureIndexes(ctx); err != nil {
		return err
	}

	// Repositories
	users := auth.NewMongoRepository(st.Users())
	histories := history.NewMongoRepository(st.Histories())
	shares := share.NewMongoRepository(st.SharedSearches())
	payments := billing.NewMongoRepository(st.Payments())

	// Services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, log)
	authSvc := auth.NewService(users, tokens, log, cfg.FreeDailySearches)
	historySvc := history.NewService(histories, userNames{users: users}, log)
	shareSvc := share.NewService(shares, cfg.ShareBaseURL, log)
	billingSvc := billing.NewService(payments, users, cfg.BillingWebhookSecret, log)
	billingClient := billing.NewClient(cfg.BillingBaseURL, cfg.BillingAPIKey)

	limiter, err := newAuthLimiter(cfg, st, log)
	if err != nil {
		return err
	}

	router := NewRouter(Deps{
		Log:         log,
		Auth:        auth.NewHandler(authSvc, log, !cfg.IsDevelopment()),
		History:     history.NewHandler(historySvc, authSvc, log),
		Share:       share.NewHandler(shareSvc, log),
		Billing:     billing.NewHandler(billingSvc, billingClient, authSvc, log),
		AuthLimiter: limiter,
		Pinger:      st,
	})

	// Origins must be explicit: browsers refuse credentialed requests to a
	// wildcard origin, and the auth cookie makes every request credentialed.
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("", "", "Listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Info("", "", "Shutting down", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}
	return nil
}

// newAuthLimiter picks the limiter backend: Redis when configured, the
// shared Mongo collection otherwise.
func newAuthLimiter(cfg *config.Config, st *store.Store, log *logger.Logger) (ratelimit.Limiter, error) {
	limitCfg := ratelimit.Config{Max: cfg.AuthRateLimitMax, Window: cfg.AuthRateLimitWindow}

	if cfg.RedisURL != "" {
		limiter, err := ratelimit.NewRedis(limitCfg, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis rate limiter: %w", err)
		}
		log.Info("", "", "Auth rate limiter using Redis", nil)
		return limiter, nil
	}

	log.Info("", "", "Auth rate limiter using MongoDB", nil)
	return ratelimit.NewMongo(limitCfg, st.RateLimits()), nil
}
