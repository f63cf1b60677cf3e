// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

/*
Package logger provides structured JSON logging for Alchemist AI services.

# Overview

The logger outputs single-line JSON to stdout, making logs directly
consumable by Docker log collectors and aggregation systems.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (server, billing, etc.)
  - Instance name (container hostname)
  - User ID (for per-user correlation)
  - Request ID (for request correlation)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("server")

Log messages with user and request context:

	log.Info(userID, requestID, "Recorded query usage", map[string]interface{}{
	    "tokens": 412,
	})

Log errors with status codes:

	log.ErrorWithCode(userID, requestID, "Request failed", 500, err, nil)

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
