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

	"github.com/AleutianAI/reverie/services/walker/datatypes"
	"github.com/AleutianAI/reverie/services/walker/history"
)

var historyTracer = otel.Tracer("reverie.walker.handlers")

// RecentWalksResponse lists journaled walks, newest first.
type RecentWalksResponse struct {
	Walks []history.Entry `json:"walks"`
	Count int             `json:"count"`
}

func HandleRecentWalks(journal *history.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := historyTracer.Start(c.Request.Context(), "HandleRecentWalks")
		defer span.End()

		var q datatypes.RecentWalksQuery
		if err := c.BindQuery(&q); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid query parameters")
			slog.Error("Failed to parse recent walks query", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
			return
		}
		if err := q.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Recent walks query validation failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}
		q.EnsureDefaults()

		if journal == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "walk journal is not configured"})
			return
		}

		span.SetAttributes(attribute.Int("request.limit", q.Limit))

		entries, err := journal.RecentWalks(ctx, q.Limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to read recent walks", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, RecentWalksResponse{Walks: entries, Count: len(entries)})
	}
}
