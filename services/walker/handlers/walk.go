// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/reverie/services/walker/datatypes"
	"github.com/AleutianAI/reverie/services/walker/history"
	"github.com/AleutianAI/reverie/services/walker/observability"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

var walkTracer = otel.Tracer("reverie.walker.handlers")

// WalkResponse wraps a single walk for the JSON API. WalkID is empty when
// no journal is configured.
type WalkResponse struct {
	WalkID string                `json:"walk_id,omitempty"`
	Result *walk.GraphWalkResult `json:"result"`
}

// MultiWalkResponse wraps a multi-character walk for the JSON API.
type MultiWalkResponse struct {
	WalkID string                `json:"walk_id,omitempty"`
	Result *walk.MultiWalkResult `json:"result"`
}

func HandleWalk(walker *walk.Walker, journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := walkTracer.Start(c.Request.Context(), "HandleWalk")
		defer span.End()

		var req datatypes.WalkRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse walk request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Walk request validation failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		span.SetAttributes(
			attribute.Int("request.seed_count", len(req.Seeds)),
			attribute.String("request.character", req.Character),
		)

		opts := tuningOptions(req.UserID, req.Character, req.MaxDepth, req.MaxNodes, req.Serendipity, req.MinScore)
		result := walker.Explore(ctx, req.Seeds, opts...)

		walkID := journalWalk(ctx, journal, history.Entry{
			Kind:      string(observability.KindWalk),
			UserID:    req.UserID,
			Character: req.Character,
			Stats:     result.Stats,
		})
		recordWalkMetrics(observability.KindWalk, len(result.Nodes), result.Stats)

		c.JSON(http.StatusOK, WalkResponse{WalkID: walkID, Result: result})
	}
}

func HandleMultiWalk(walker *walk.Walker, journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := walkTracer.Start(c.Request.Context(), "HandleMultiWalk")
		defer span.End()

		var req datatypes.MultiWalkRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse multi walk request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Multi walk request validation failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		span.SetAttributes(
			attribute.Int("request.seed_count", len(req.Seeds)),
			attribute.String("request.primary", req.Primary),
			attribute.Int("request.secondary_count", len(req.Secondaries)),
		)

		// The walker applies the primary and secondary characters itself;
		// only user identity and tuning pass through as options.
		opts := tuningOptions(req.UserID, "", req.MaxDepth, req.MaxNodes, req.Serendipity, req.MinScore)
		result := walker.MultiCharacterWalk(ctx, req.Primary, req.Secondaries, req.Seeds, opts...)

		walkID := journalWalk(ctx, journal, history.Entry{
			Kind:      string(observability.KindMulti),
			UserID:    req.UserID,
			Character: req.Primary,
			Stats:     result.PrimaryWalk.Stats,
		})
		recordWalkMetrics(observability.KindMulti, len(result.MergedNodes), result.PrimaryWalk.Stats)

		c.JSON(http.StatusOK, MultiWalkResponse{WalkID: walkID, Result: result})
	}
}

// tuningOptions maps the non-zero tuning fields of a request onto walk
// options, leaving walker defaults in place for everything unset.
func tuningOptions(userID, character string, maxDepth, maxNodes int, serendipity, minScore float64) []walk.Option {
	var opts []walk.Option
	if userID != "" {
		opts = append(opts, walk.WithUser(userID))
	}
	if character != "" {
		opts = append(opts, walk.WithCharacter(character))
	}
	if maxDepth > 0 {
		opts = append(opts, walk.WithMaxDepth(maxDepth))
	}
	if maxNodes > 0 {
		opts = append(opts, walk.WithMaxNodes(maxNodes))
	}
	if serendipity > 0 {
		opts = append(opts, walk.WithSerendipity(serendipity))
	}
	if minScore > 0 {
		opts = append(opts, walk.WithMinScore(minScore))
	}
	return opts
}

// journalWalk records a finished walk when a journal is configured.
// Journal failures are logged and never fail the request.
func journalWalk(ctx context.Context, journal *history.Journal, entry history.Entry) string {
	if journal == nil {
		return entry.WalkID
	}
	walkID, err := journal.Record(ctx, entry)
	if err != nil {
		slog.Warn("Failed to journal walk", "kind", entry.Kind, "error", err)
		return entry.WalkID
	}
	return walkID
}

func recordWalkMetrics(kind observability.Kind, nodes int, stats walk.WalkStats) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordWalk(kind, nodes, float64(stats.DurationMs)/1000.0, stats.Error == "")
	}
}
