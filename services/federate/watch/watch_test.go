// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch1, cancel1 := hub.Subscribe()
	ch2, cancel2 := hub.Subscribe()
	defer cancel1()
	defer cancel2()

	hub.Publish(Event{Type: EventConfigChanged, Path: "/a/webpack.config.js"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventConfigChanged {
				t.Errorf("Type = %s, want config-changed", ev.Type)
			}
			if ev.Time.IsZero() {
				t.Error("Publish did not stamp Time")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", hub.SubscriberCount())
	}
	hub.Publish(Event{Type: EventConfigChanged}) // must not panic
}

func TestHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(Event{Type: EventRemoteExited, Remote: "shop"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestHubCloseClosesSubscribers(t *testing.T) {
	hub := NewHub()
	ch, _ := hub.Subscribe()
	hub.Close()
	hub.Close() // idempotent

	if _, open := <-ch; open {
		t.Error("subscriber channel still open after hub close")
	}
	// Subscribing after close yields a closed channel.
	late, _ := hub.Subscribe()
	if _, open := <-late; open {
		t.Error("late subscriber channel open on closed hub")
	}
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestWatcherEmitsConfigChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "webpack.config.js")
	if err := os.WriteFile(configPath, []byte("module.exports = {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	hub := NewHub()
	defer hub.Close()
	ch, cancel := hub.Subscribe()
	defer cancel()

	w, err := NewWatcher(hub, []string{configPath}, "", WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(configPath, []byte("module.exports = {mode: 'dev'}"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitForEvent(t, ch)
	if ev.Type != EventConfigChanged {
		t.Errorf("Type = %s, want config-changed", ev.Type)
	}
	if ev.Path != configPath {
		t.Errorf("Path = %s, want %s", ev.Path, configPath)
	}
}

func TestWatcherEmitsSidecarChange(t *testing.T) {
	dir := t.TempDir()
	sidecarPath := filepath.Join(dir, ".aleutian-federate.json")
	if err := os.WriteFile(sidecarPath, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	hub := NewHub()
	defer hub.Close()
	ch, cancel := hub.Subscribe()
	defer cancel()

	w, err := NewWatcher(hub, nil, sidecarPath, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(sidecarPath, []byte(`{"version":1}`), 0o600); err != nil {
		t.Fatal(err)
	}

	ev := waitForEvent(t, ch)
	if ev.Type != EventSidecarChanged {
		t.Errorf("Type = %s, want sidecar-changed", ev.Type)
	}
}

func TestWatcherIgnoresUnwatchedSiblings(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "vite.config.ts")
	siblingPath := filepath.Join(dir, "notes.txt")
	for _, p := range []string{configPath, siblingPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	hub := NewHub()
	defer hub.Close()
	ch, cancel := hub.Subscribe()
	defer cancel()

	w, err := NewWatcher(hub, []string{configPath}, "", WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(siblingPath, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for sibling: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rsbuild.config.ts")
	if err := os.WriteFile(configPath, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	hub := NewHub()
	defer hub.Close()
	ch, cancel := hub.Subscribe()
	defer cancel()

	w, err := NewWatcher(hub, []string{configPath}, "", WithDebounce(150*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(configPath, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	waitForEvent(t, ch)
	select {
	case ev := <-ch:
		t.Fatalf("burst produced a second event: %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	hub := NewHub()
	defer hub.Close()

	w, err := NewWatcher(hub, []string{filepath.Join(dir, "webpack.config.js")}, "")
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}
