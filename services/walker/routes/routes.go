// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/reverie/services/walker/agent"
	"github.com/AleutianAI/reverie/services/walker/handlers"
	"github.com/AleutianAI/reverie/services/walker/history"
	"github.com/AleutianAI/reverie/services/walker/telemetry"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

func SetupRoutes(router *gin.Engine, walker *walk.Walker, dreamer *agent.Agent,
	journal *history.Journal) {

	router.GET("/health", handlers.HealthCheck)

	// The telemetry handler folds OTel metrics into the scrape when the
	// Prometheus exporter is active; otherwise serve the default registry.
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/walk", handlers.HandleWalk(walker, journal))
		v1.POST("/walk/multi", handlers.HandleMultiWalk(walker, journal))
		v1.GET("/walk/stream", handlers.HandleWalkStream(walker, journal))
		v1.POST("/dream", handlers.HandleDream(dreamer, journal))
		v1.POST("/diary", handlers.HandleDiary(dreamer, journal))
		v1.POST("/context", handlers.HandleContext(dreamer, journal))
		// Walk history routes
		walks := v1.Group("/walks")
		{
			walks.GET("/recent", handlers.HandleRecentWalks(journal))
		}
	}
}
