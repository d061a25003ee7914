// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command walker starts the Reverie graph walker HTTP server.
//
// This is the main entry point for the containerized walker service.
// It reads configuration from environment variables, seals API keys
// into locked memory, and serves until interrupted.
//
// # Environment Variables
//
//   - WALKER_PORT: HTTP server port (default: 12220)
//   - WALKER_LOG_LEVEL: debug, info, warn, or error (default: info)
//   - WALKER_LOG_DIR: directory for daily JSON log files (optional)
//   - NEO4J_URI: bolt URI of the property graph (in-memory store if unset)
//   - NEO4J_USER: Neo4j username (default: neo4j)
//   - NEO4J_DATABASE: Neo4j database name (optional)
//   - NEO4J_PASSWORD: Neo4j password, sealed at startup
//   - INFLUXDB_URL: InfluxDB endpoint for trust trajectories (optional)
//   - INFLUXDB_ORG, INFLUXDB_BUCKET: trust_events series location
//   - INFLUXDB_TOKEN: InfluxDB API token, sealed at startup
//   - WEAVIATE_SERVICE_URL: dream memory host:port (optional)
//   - WALKER_JOURNAL_PATH: Badger walk journal directory (optional)
//   - WALKER_ARCHIVE_BUCKET: GCS bucket for journal exports (optional)
//   - WALKER_ARCHIVE_KEY_PATH: GCS service account key file
//   - WALKER_ARCHIVE_INTERVAL: export interval, e.g. 12h (default: 24h)
//   - WALKER_ANCHOR_PATH: per-character anchor YAML, hot-reloaded (optional)
//   - WALKER_TRUST_GATE: minimum trust for companion handoff (default: 20)
//   - WALKER_DREAM_BUDGET: node budget per dream walk (optional)
//   - LLM_BACKEND_TYPE: openai, ollama, claude, none (default: none)
//   - LLM_MODEL: model override for the chosen backend (optional)
//   - OLLAMA_SERVICE_URL: Ollama endpoint for the ollama backend
//   - WALKER_LLM_RPM: interpretation rate limit (default: 30)
//   - OPENAI_API_KEY, ANTHROPIC_API_KEY: backend keys, sealed at startup
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER, OTEL_METRICS_EXPORTER: exporter selection
//
// # Usage
//
//	# Build
//	go build -o walker ./cmd/walker
//
//	# Run
//	./walker
//
//	# Or via container
//	podman-compose up walker
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/AleutianAI/reverie/pkg/logging"
	"github.com/AleutianAI/reverie/pkg/secrets"
	"github.com/AleutianAI/reverie/services/walker"
)

func main() {
	// Structured JSON logging for container stderr, plus an optional
	// daily file when WALKER_LOG_DIR is set.
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("WALKER_LOG_LEVEL")),
		LogDir:  os.Getenv("WALKER_LOG_DIR"),
		Service: "walker",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Seal keys into locked memory and scrub them from the environment
	// before anything else reads it.
	sealed := secrets.FromEnv(
		walker.SecretOpenAIKey,
		walker.SecretAnthropicKey,
		walker.SecretInfluxToken,
		walker.SecretNeo4jPassword,
	)

	cfg := walker.Config{
		Port:                 getEnvInt("WALKER_PORT", 12220),
		Neo4jURI:             os.Getenv("NEO4J_URI"),
		Neo4jUser:            getEnvString("NEO4J_USER", "neo4j"),
		Neo4jDatabase:        os.Getenv("NEO4J_DATABASE"),
		InfluxURL:            os.Getenv("INFLUXDB_URL"),
		InfluxOrg:            os.Getenv("INFLUXDB_ORG"),
		InfluxBucket:         os.Getenv("INFLUXDB_BUCKET"),
		WeaviateURL:          os.Getenv("WEAVIATE_SERVICE_URL"),
		JournalPath:          os.Getenv("WALKER_JOURNAL_PATH"),
		ArchiveBucket:        os.Getenv("WALKER_ARCHIVE_BUCKET"),
		ArchiveKeyPath:       os.Getenv("WALKER_ARCHIVE_KEY_PATH"),
		ArchiveInterval:      getEnvDuration("WALKER_ARCHIVE_INTERVAL", 0),
		AnchorPath:           os.Getenv("WALKER_ANCHOR_PATH"),
		TrustGate:            getEnvFloat("WALKER_TRUST_GATE", 0),
		DreamNodeBudget:      getEnvInt("WALKER_DREAM_BUDGET", 0),
		LLMBackend:           getEnvString("LLM_BACKEND_TYPE", "none"),
		LLMModel:             os.Getenv("LLM_MODEL"),
		OllamaURL:            os.Getenv("OLLAMA_SERVICE_URL"),
		LLMRequestsPerMinute: getEnvInt("WALKER_LLM_RPM", 0),
		Secrets:              sealed,
	}

	slog.Info("Starting walker",
		"port", cfg.Port,
		"graph", describeGraph(cfg.Neo4jURI),
		"llm_backend", cfg.LLMBackend,
		"sealed_secrets", sealed.Len(),
	)

	svc, err := walker.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create walker: %v", err)
	}

	// Run the server; on SIGINT/SIGTERM wipe sealed keys before exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run() }()

	select {
	case err := <-errCh:
		secrets.Purge()
		log.Fatalf("Walker error: %v", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		secrets.Purge()
	}
}

// describeGraph names the graph backend for the startup log without
// leaking credentials embedded in the URI.
func describeGraph(neo4jURI string) string {
	if neo4jURI == "" {
		return "in-memory"
	}
	return "neo4j"
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a
// default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
