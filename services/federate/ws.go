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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local tooling; the daemon binds to loopback by default.
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// HandleWatchWS handles GET /api/v1/watch/ws.
//
// # Description
//
// Upgrades the connection and streams watch events (config-changed,
// sidecar-changed, remote-exited) as JSON messages until the client
// disconnects or the hub closes. Pings keep intermediaries from timing
// the connection out.
func (h *Handlers) HandleWatchWS(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleWatchWS")

	hub := h.svc.Hub()
	if hub == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Watching is not enabled",
			Code:  "WATCH_DISABLED",
		})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	events, cancel := hub.Subscribe()
	defer cancel()

	logger.Info("Watch client connected")

	// Reader goroutine: drain client frames so close frames and pongs are
	// processed; any read error ends the session.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-readerDone:
			logger.Info("Watch client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				// Hub closed; tell the client before hanging up.
				deadline := time.Now().Add(wsWriteTimeout)
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					deadline)
				return
			}
			ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(ev); err != nil {
				logger.Warn("WebSocket write failed", "error", err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
