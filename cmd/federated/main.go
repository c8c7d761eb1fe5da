// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command federated starts the federation daemon.
//
// The daemon scans a workspace for Module Federation configs, serves the
// extraction API, streams config-change events over WebSocket, and starts
// and stops remote dev servers.
//
// Usage:
//
//	go run ./cmd/federated -root ./my-workspace
//	go run ./cmd/federated -port 9090 -debug
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8787/healthz
//
//	# Trigger a scan
//	curl -X POST http://localhost:8787/api/v1/scan
//
//	# Render the dependency graph
//	curl -X POST http://localhost:8787/api/v1/graph \
//	  -H "Content-Type: application/json" \
//	  -d '{"format": "mermaid"}'
//
//	# Start a bound remote
//	curl -X POST http://localhost:8787/api/v1/remotes/shop/start
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianFederate/pkg/logging"
	federate "github.com/AleutianAI/AleutianFederate/services/federate"
	"github.com/AleutianAI/AleutianFederate/services/federate/config"
	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
	"github.com/AleutianAI/AleutianFederate/services/federate/runner"
	"github.com/AleutianAI/AleutianFederate/services/federate/scanner"
	"github.com/AleutianAI/AleutianFederate/services/federate/snapshot"
	"github.com/AleutianAI/AleutianFederate/services/federate/store"
	"github.com/AleutianAI/AleutianFederate/services/federate/telemetry"
	"github.com/AleutianAI/AleutianFederate/services/federate/watch"
	"github.com/AleutianAI/AleutianFederate/services/federate/workspace"
)

func main() {
	port := flag.Int("port", 8787, "Port to listen on")
	root := flag.String("root", ".", "Workspace root to scan")
	debug := flag.Bool("debug", false, "Enable debug mode")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	snapDir := flag.String("snapshot-dir", "", "Snapshot database directory (default ~/.aleutian-federate/snapshots)")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:   parseLevel(*logLevel),
		Service: "federated",
	})
	slog.SetDefault(logger.Slog())

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(*port, *root, *snapDir); err != nil {
		slog.Error("federated exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(port int, rootFlag, snapDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, err := filepath.Abs(rootFlag)
	if err != nil {
		return fmt.Errorf("resolve workspace root %s: %w", rootFlag, err)
	}

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	if snapDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		snapDir = filepath.Join(home, ".aleutian-federate", "snapshots")
	}
	db, err := snapshot.Open(snapshot.DefaultConfig(snapDir))
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer db.Close()
	snaps := snapshot.NewStore(db)

	registry, err := config.Load()
	if err != nil {
		return fmt.Errorf("load dialect registry: %w", err)
	}
	discoverer, err := workspace.NewDiscoverer(registry)
	if err != nil {
		return fmt.Errorf("create discoverer: %w", err)
	}
	detector, err := workspace.NewDetector(0)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	sidecar := store.NewStore(root)
	if err := sidecar.Load(); err != nil {
		return fmt.Errorf("load sidecar: %w", err)
	}

	extractor := federation.NewExtractor(
		federation.WithLegacyViteMatch(registry.LegacyViteMatch),
		federation.WithConcurrency(registry.ScanConcurrency),
	)
	sc := scanner.NewScanner(discoverer, extractor, detector, sidecar,
		scanner.WithSnapshotStore(snaps))

	hub := watch.NewHub()
	defer hub.Close()

	remoteRunner := runner.NewRunner(runner.NewDefaultProcessManager(),
		runner.WithExitCallback(func(ev runner.ExitEvent) {
			detail := "exited"
			if ev.Err != nil {
				detail = ev.Err.Error()
			}
			if ev.Requested {
				detail = "stopped"
			}
			hub.Publish(watch.Event{
				Type:   watch.EventRemoteExited,
				Remote: ev.Name,
				Detail: detail,
			})
		}))

	svc := federate.NewService(root, sc, snaps,
		federate.WithRunner(remoteRunner),
		federate.WithHub(hub))

	// Initial scan seeds the API and tells the watcher which files matter.
	// A failed scan is not fatal; clients can trigger one later.
	watcher := startWatcher(ctx, svc, hub, sidecar)
	if watcher != nil {
		defer watcher.Stop()
	}

	engine := federate.NewEngine(federate.NewHandlers(svc))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting federated server",
			slog.String("address", server.Addr),
			slog.String("root", root),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	printBanner(port, root)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down federated server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", slog.Any("error", err))
	}
	if err := remoteRunner.StopAll(); err != nil {
		slog.Warn("stopping remotes", slog.Any("error", err))
	}
	return nil
}

// startWatcher runs the initial scan and wires the file watcher over the
// discovered config paths. Returns nil when nothing can be watched.
func startWatcher(ctx context.Context, svc *federate.Service, hub *watch.Hub, sidecar *store.Store) *watch.Watcher {
	result, err := svc.Scan(ctx, "")
	if err != nil {
		slog.Warn("initial scan failed; file watching disabled until a scan succeeds",
			slog.Any("error", err))
		return nil
	}
	slog.Info("initial scan complete",
		slog.String("scan_id", result.ID),
		slog.Int("configs", len(result.Configs)),
		slog.Int("warnings", len(result.Warnings)),
	)

	paths := make([]string, 0, len(result.Configs))
	for _, cfg := range result.Configs {
		paths = append(paths, cfg.SourceFilePath)
	}
	if len(paths) == 0 {
		slog.Info("no federation configs found; file watching disabled")
		return nil
	}

	watcher, err := watch.NewWatcher(hub, paths, sidecar.Path())
	if err != nil {
		slog.Warn("create file watcher", slog.Any("error", err))
		return nil
	}
	if err := watcher.Start(ctx); err != nil {
		slog.Warn("start file watcher", slog.Any("error", err))
		return nil
	}
	slog.Info("watching federation configs", slog.Int("files", len(paths)))
	return watcher
}

// parseLevel maps the flag value to a logging level, defaulting to info.
func parseLevel(raw string) logging.Level {
	switch raw {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func printBanner(port int, root string) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                     ALEUTIAN FEDERATE DAEMON                      ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Static Module Federation extraction for unexecuted configs.      ║
║  Workspace: %-53s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/healthz                          │  ║
║  │                                                             │  ║
║  │ # Trigger a scan                                            │  ║
║  │ curl -X POST http://localhost:%d/api/v1/scan              │  ║
║  │                                                             │  ║
║  │ # Render the dependency graph                               │  ║
║  │ curl -X POST http://localhost:%d/api/v1/graph \           │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"format": "mermaid"}'                                │  ║
║  │                                                             │  ║
║  │ # Start a bound remote                                      │  ║
║  │ curl -X POST http://localhost:%d/api/v1/remotes/shop/start│  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Scans: /api/v1/scan, /api/v1/scans, /api/v1/scans/:id       ║
║  ├── Graph: /api/v1/graph (mermaid, dot, d3, html)               ║
║  ├── Remotes: /api/v1/remotes, /remotes/:name/start|stop         ║
║  └── Watch: /api/v1/watch/ws (WebSocket event stream)            ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	trimmed := root
	if len(trimmed) > 53 {
		trimmed = "…" + trimmed[len(trimmed)-52:]
	}
	fmt.Printf(banner, trimmed, port, port, port, port)
}
