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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/reverie/services/walker/agent"
	"github.com/AleutianAI/reverie/services/walker/datatypes"
	"github.com/AleutianAI/reverie/services/walker/history"
	"github.com/AleutianAI/reverie/services/walker/observability"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

var agentTracer = otel.Tracer("reverie.walker.handlers")

// AgentWalkResponse wraps a narrated walk for the JSON API. Multi is set
// only when companions took part.
type AgentWalkResponse struct {
	WalkID string                `json:"walk_id"`
	Result *walk.GraphWalkResult `json:"result"`
	Multi  *walk.MultiWalkResult `json:"multi,omitempty"`
}

func HandleDream(dreamer *agent.Agent, journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := agentTracer.Start(c.Request.Context(), "HandleDream")
		defer span.End()

		var req datatypes.AgentWalkRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse dream request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Dream request validation failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		span.SetAttributes(
			attribute.String("request.character", req.Character),
			attribute.Int("request.companion_count", len(req.Companions)),
		)

		res := dreamer.ExploreForDream(ctx, agent.Request{
			UserID:     req.UserID,
			Character:  req.Character,
			Companions: req.Companions,
			Seeds:      req.Seeds,
		})

		journalWalk(ctx, journal, history.Entry{
			WalkID:         res.WalkID,
			Kind:           string(observability.KindDream),
			UserID:         req.UserID,
			Character:      req.Character,
			Stats:          res.Walk.Stats,
			Interpretation: res.Walk.Interpretation,
		})
		recordWalkMetrics(observability.KindDream, len(res.Walk.Nodes), res.Walk.Stats)
		recordInterpretation(observability.KindDream, res.Walk)

		c.JSON(http.StatusOK, AgentWalkResponse{WalkID: res.WalkID, Result: res.Walk, Multi: res.Multi})
	}
}

func HandleDiary(dreamer *agent.Agent, journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := agentTracer.Start(c.Request.Context(), "HandleDiary")
		defer span.End()

		var req datatypes.AgentWalkRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse diary request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Diary request validation failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		span.SetAttributes(attribute.String("request.character", req.Character))

		res := dreamer.ExploreForDiary(ctx, agent.Request{
			UserID:    req.UserID,
			Character: req.Character,
			Seeds:     req.Seeds,
		})

		journalWalk(ctx, journal, history.Entry{
			WalkID:         res.WalkID,
			Kind:           string(observability.KindDiary),
			UserID:         req.UserID,
			Character:      req.Character,
			Stats:          res.Walk.Stats,
			Interpretation: res.Walk.Interpretation,
		})
		recordWalkMetrics(observability.KindDiary, len(res.Walk.Nodes), res.Walk.Stats)
		recordInterpretation(observability.KindDiary, res.Walk)

		c.JSON(http.StatusOK, AgentWalkResponse{WalkID: res.WalkID, Result: res.Walk})
	}
}

func HandleContext(dreamer *agent.Agent, journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := agentTracer.Start(c.Request.Context(), "HandleContext")
		defer span.End()

		var req datatypes.AgentWalkRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse context request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Context request validation failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		span.SetAttributes(attribute.String("request.character", req.Character))

		res := dreamer.ExploreForContext(ctx, agent.Request{
			UserID:    req.UserID,
			Character: req.Character,
			Seeds:     req.Seeds,
		})

		journalWalk(ctx, journal, history.Entry{
			WalkID:    res.WalkID,
			Kind:      string(observability.KindContext),
			UserID:    req.UserID,
			Character: req.Character,
			Stats:     res.Walk.Stats,
		})
		recordWalkMetrics(observability.KindContext, len(res.Walk.Nodes), res.Walk.Stats)

		c.JSON(http.StatusOK, AgentWalkResponse{WalkID: res.WalkID, Result: res.Walk})
	}
}

// recordInterpretation counts generation outcomes for walks that had
// something to narrate. Empty walks are skipped; nothing was attempted.
func recordInterpretation(kind observability.Kind, result *walk.GraphWalkResult) {
	if m := observability.DefaultMetrics; m != nil && len(result.Nodes) > 0 {
		m.RecordInterpretation(kind, result.Interpretation != "")
	}
}
