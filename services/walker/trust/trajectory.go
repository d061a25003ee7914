// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trust provides trust-relationship and trust-trajectory sources
// for the walker: an InfluxDB-backed trajectory adapter, a read-through
// TTL cache, and static fixtures for development and tests.
package trust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// DefaultTrajectoryWindow is how far back the trust series reaches.
const DefaultTrajectoryWindow = 30 * 24 * time.Hour

// InfluxConfig carries the connection settings for the trust time-series
// backend.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	Window time.Duration
}

// InfluxTrajectory implements walk.TrajectorySource against an InfluxDB
// bucket of trust_events points.
type InfluxTrajectory struct {
	client influxdb2.Client
	org    string
	bucket string
	window time.Duration
	logger *slog.Logger
}

// NewInfluxTrajectory builds a trajectory source. The client connects
// lazily; a wrong URL or token surfaces on the first query.
func NewInfluxTrajectory(cfg InfluxConfig, logger *slog.Logger) *InfluxTrajectory {
	if cfg.Window <= 0 {
		cfg.Window = DefaultTrajectoryWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InfluxTrajectory{
		client: influxdb2.NewClient(cfg.URL, cfg.Token),
		org:    cfg.Org,
		bucket: cfg.Bucket,
		window: cfg.Window,
		logger: logger,
	}
}

// Close releases the underlying client.
func (t *InfluxTrajectory) Close() {
	t.client.Close()
}

// trajectoryQuery builds the Flux query for one (user, character) trust
// series, oldest point first.
func trajectoryQuery(bucket string, window time.Duration, userID, character string) string {
	days := int(window.Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: -%dd)
		  |> filter(fn: (r) => r._measurement == "trust_events")
		  |> filter(fn: (r) => r.user_id == "%s")
		  |> filter(fn: (r) => r.character == "%s")
		  |> filter(fn: (r) => r._field == "trust_score")
		  |> sort(columns: ["_time"])
	`, bucket, days, userID, character)
}

// GetTrustTrajectory implements walk.TrajectorySource. The series is
// chronological; an empty series means no recorded trust events in the
// window, which the scorer treats as neutral.
func (t *InfluxTrajectory) GetTrustTrajectory(ctx context.Context, userID, character string) ([]float64, error) {
	query := trajectoryQuery(t.bucket, t.window, userID, character)

	queryAPI := t.client.QueryAPI(t.org)
	result, err := queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trust trajectory: %w", err)
	}

	var series []float64
	for result.Next() {
		if val, ok := result.Record().Value().(float64); ok {
			series = append(series, val)
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trust trajectory: %w", err)
	}

	t.logger.Debug("trust trajectory fetched",
		slog.String("user_id", userID),
		slog.String("character", character),
		slog.Int("points", len(series)),
	)
	return series, nil
}
