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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianFederate/services/federate/runner"
	"github.com/AleutianAI/AleutianFederate/services/federate/snapshot"
)

// Handlers contains the HTTP handlers for the federate service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleScan handles POST /api/v1/scan.
//
// Response:
//
//	200 OK: scanner.ScanResult
//	500 Internal Server Error: scan failure
func (h *Handlers) HandleScan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleScan")

	var req ScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid request body",
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	result, err := h.svc.Scan(c.Request.Context(), req.Root)
	if err != nil {
		logger.Error("Scan failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Scan failed",
			Code:    "SCAN_FAILED",
			Details: err.Error(),
		})
		return
	}

	logger.Info("Scan complete", "scan_id", result.ID, "configs", len(result.Configs))
	c.JSON(http.StatusOK, result)
}

// HandleListScans handles GET /api/v1/scans. The optional limit query
// parameter caps the result count.
func (h *Handlers) HandleListScans(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListScans")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid limit parameter",
				Code:  "INVALID_REQUEST",
			})
			return
		}
		limit = parsed
	}

	summaries, err := h.svc.ListScans(c.Request.Context(), limit)
	if err != nil {
		logger.Error("List scans failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "List scans failed",
			Code:  "LIST_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": summaries})
}

// HandleGetScan handles GET /api/v1/scans/:id.
func (h *Handlers) HandleGetScan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetScan")

	record, err := h.svc.GetScan(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, snapshot.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Scan not found",
				Code:  "SCAN_NOT_FOUND",
			})
			return
		}
		logger.Error("Get scan failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Get scan failed",
			Code:  "GET_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, record)
}

// HandleDeleteScan handles DELETE /api/v1/scans/:id.
func (h *Handlers) HandleDeleteScan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteScan")

	id := c.Param("id")
	if err := h.svc.DeleteScan(c.Request.Context(), id); err != nil {
		if errors.Is(err, snapshot.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Scan not found",
				Code:  "SCAN_NOT_FOUND",
			})
			return
		}
		logger.Error("Delete scan failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Delete scan failed",
			Code:  "DELETE_FAILED",
		})
		return
	}
	logger.Info("Scan deleted", "scan_id", id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// HandleGraph handles POST /api/v1/graph.
func (h *Handlers) HandleGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGraph")

	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.svc.Graph(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoScan):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "No scan available; run a scan first",
				Code:  "NO_SCAN",
			})
		case errors.Is(err, snapshot.ErrScanNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Scan not found",
				Code:  "SCAN_NOT_FOUND",
			})
		default:
			logger.Error("Graph generation failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "Graph generation failed",
				Code:  "GRAPH_FAILED",
			})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleListRemotes handles GET /api/v1/remotes.
func (h *Handlers) HandleListRemotes(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListRemotes")

	remotes, err := h.svc.Remotes(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoScan) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "No scan available; run a scan first",
				Code:  "NO_SCAN",
			})
			return
		}
		logger.Error("List remotes failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "List remotes failed",
			Code:  "LIST_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"remotes": remotes})
}

// HandleStartRemote handles POST /api/v1/remotes/:name/start.
func (h *Handlers) HandleStartRemote(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStartRemote")

	name := c.Param("name")
	status, err := h.svc.StartRemote(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoScan), errors.Is(err, ErrRemoteUnknown):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Remote not found",
				Code:  "REMOTE_NOT_FOUND",
			})
		case errors.Is(err, runner.ErrRemoteAlreadyRunning):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: "Remote already running",
				Code:  "ALREADY_RUNNING",
			})
		case errors.Is(err, runner.ErrRemoteNotBound):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "Remote has no confirmed folder and start command",
				Code:    "NOT_BOUND",
				Details: err.Error(),
			})
		case errors.Is(err, runner.ErrCommandInvalid):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Start command invalid",
				Code:    "COMMAND_INVALID",
				Details: err.Error(),
			})
		default:
			logger.Error("Start remote failed", "remote", name, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "Start remote failed",
				Code:  "START_FAILED",
			})
		}
		return
	}

	logger.Info("Remote started", "remote", name, "pid", status.PID)
	c.JSON(http.StatusOK, RemoteActionResponse{Name: name, Status: status})
}

// HandleStopRemote handles POST /api/v1/remotes/:name/stop.
func (h *Handlers) HandleStopRemote(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStopRemote")

	name := c.Param("name")
	if err := h.svc.StopRemote(name); err != nil {
		if errors.Is(err, runner.ErrRemoteNotRunning) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Remote not running",
				Code:  "NOT_RUNNING",
			})
			return
		}
		logger.Error("Stop remote failed", "remote", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Stop remote failed",
			Code:  "STOP_FAILED",
		})
		return
	}

	logger.Info("Remote stop requested", "remote", name)
	c.JSON(http.StatusOK, gin.H{"stopping": name})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
