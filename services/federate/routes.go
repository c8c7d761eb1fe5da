// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package federate

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianFederate/services/federate/telemetry"
)

// RegisterRoutes registers the federate API with the router group.
//
// Endpoints:
//
//	POST   /scan                 - Run a workspace scan
//	GET    /scans                - List persisted scans
//	GET    /scans/:id            - Get one scan record
//	DELETE /scans/:id            - Delete a scan record
//	POST   /graph                - Render the dependency graph
//	GET    /remotes              - List extracted remotes with live state
//	POST   /remotes/:name/start  - Start a remote's dev server
//	POST   /remotes/:name/stop   - Stop a remote's dev server
//	GET    /watch/ws             - WebSocket event stream
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/scan", handlers.HandleScan)

	rg.GET("/scans", handlers.HandleListScans)
	rg.GET("/scans/:id", handlers.HandleGetScan)
	rg.DELETE("/scans/:id", handlers.HandleDeleteScan)

	rg.POST("/graph", handlers.HandleGraph)

	rg.GET("/remotes", handlers.HandleListRemotes)
	rg.POST("/remotes/:name/start", handlers.HandleStartRemote)
	rg.POST("/remotes/:name/stop", handlers.HandleStopRemote)

	rg.GET("/watch/ws", handlers.HandleWatchWS)
}

// NewEngine builds the gin engine with middleware, health, metrics, and
// the versioned API group.
func NewEngine(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("federate-service"))

	router.GET("/healthz", handlers.HandleHealth)
	if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := router.Group("/api/v1")
	RegisterRoutes(v1, handlers)

	return router
}
