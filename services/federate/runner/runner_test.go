// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

func boundRemote(name string) federation.RemoteRef {
	return federation.RemoteRef{
		Name:               name,
		LocalProjectFolder: "/tmp/" + name,
		StartCommand:       "pnpm run dev",
		PackageManager:     "pnpm",
	}
}

// blockingMock returns a mock whose wait blocks until release is closed.
func blockingMock() (*MockProcessManager, chan struct{}) {
	release := make(chan struct{})
	mock := &MockProcessManager{
		StartGroupFunc: func(ctx context.Context, dir, name string, args ...string) (int, func() error, error) {
			return 4242, func() error {
				<-release
				return nil
			}, nil
		},
	}
	return mock, release
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
		wantErr bool
	}{
		{name: "simple", command: "pnpm run dev", want: []string{"pnpm", "run", "dev"}},
		{name: "quoted word", command: `"pnpm" run dev`, want: []string{"pnpm", "run", "dev"}},
		{name: "single quoted arg", command: "npm run 'start:web'", want: []string{"npm", "run", "start:web"}},
		{name: "extra whitespace", command: "  yarn   start  ", want: []string{"yarn", "start"}},
		{name: "flag with equals", command: "vite --port=3001", want: []string{"vite", "--port=3001"}},
		{name: "empty", command: "", wantErr: true},
		{name: "blank", command: "   ", wantErr: true},
		{name: "redirection", command: "pnpm run dev > out.log", wantErr: true},
		{name: "pipe", command: "pnpm run dev | tee log", wantErr: true},
		{name: "and chain", command: "cd web && pnpm dev", wantErr: true},
		{name: "semicolon chain", command: "pnpm build; pnpm dev", wantErr: true},
		{name: "background", command: "pnpm dev &", wantErr: true},
		{name: "env assignment", command: "PORT=3001 pnpm dev", wantErr: true},
		{name: "subshell", command: "(pnpm dev)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitCommand(tt.command)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitCommand(%q) expected error, got %v", tt.command, got)
				}
				if !errors.Is(err, ErrCommandInvalid) {
					t.Errorf("error = %v, want ErrCommandInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitCommand(%q) unexpected error: %v", tt.command, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitCommand(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestStartSpawnsInRemoteFolder(t *testing.T) {
	mock, release := blockingMock()
	defer close(release)
	r := NewRunner(mock)

	if err := r.Start(context.Background(), boundRemote("shop")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := mock.CallCount("StartGroup"); got != 1 {
		t.Fatalf("StartGroup calls = %d, want 1", got)
	}
	call := mock.Calls[0]
	if call.Dir != "/tmp/shop" {
		t.Errorf("Dir = %q, want /tmp/shop", call.Dir)
	}
	if call.Name != "pnpm" || !reflect.DeepEqual(call.Args, []string{"run", "dev"}) {
		t.Errorf("argv = %q %v, want pnpm [run dev]", call.Name, call.Args)
	}

	statuses := r.Status()
	if len(statuses) != 1 {
		t.Fatalf("Status len = %d, want 1", len(statuses))
	}
	if statuses[0].Name != "shop" || statuses[0].PID != 4242 || statuses[0].State != StateRunning {
		t.Errorf("unexpected status: %+v", statuses[0])
	}
}

func TestStartUnboundRemote(t *testing.T) {
	r := NewRunner(&MockProcessManager{})

	err := r.Start(context.Background(), federation.RemoteRef{Name: "shop"})
	if !errors.Is(err, ErrRemoteNotBound) {
		t.Fatalf("error = %v, want ErrRemoteNotBound", err)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	mock, release := blockingMock()
	defer close(release)
	r := NewRunner(mock)

	if err := r.Start(context.Background(), boundRemote("shop")); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := r.Start(context.Background(), boundRemote("shop"))
	if !errors.Is(err, ErrRemoteAlreadyRunning) {
		t.Fatalf("error = %v, want ErrRemoteAlreadyRunning", err)
	}
}

func TestStartSpawnFailureClearsSlot(t *testing.T) {
	spawnErr := errors.New("exec: not found")
	mock := &MockProcessManager{
		StartGroupFunc: func(ctx context.Context, dir, name string, args ...string) (int, func() error, error) {
			return 0, nil, spawnErr
		},
	}
	r := NewRunner(mock)

	if err := r.Start(context.Background(), boundRemote("shop")); !errors.Is(err, spawnErr) {
		t.Fatalf("error = %v, want wrapped spawn error", err)
	}
	if r.Running("shop") {
		t.Error("remote still tracked after failed spawn")
	}
	if len(r.Status()) != 0 {
		t.Errorf("Status = %v, want empty", r.Status())
	}
}

func TestStopSignalsGroupAndReaps(t *testing.T) {
	exited := make(chan ExitEvent, 1)
	mock, release := blockingMock()
	r := NewRunner(mock, WithExitCallback(func(ev ExitEvent) { exited <- ev }))

	if err := r.Start(context.Background(), boundRemote("shop")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Stop("shop"); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	var signal MockCall
	for _, call := range mock.Calls {
		if call.Method == "SignalGroup" {
			signal = call
		}
	}
	if signal.PGID != 4242 || signal.Signal != syscall.SIGTERM {
		t.Errorf("SignalGroup(%d, %v), want (4242, SIGTERM)", signal.PGID, signal.Signal)
	}

	close(release)
	select {
	case ev := <-exited:
		if ev.Name != "shop" || !ev.Requested || ev.Err != nil {
			t.Errorf("unexpected exit event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit event")
	}

	if r.Running("shop") {
		t.Error("remote still tracked after exit")
	}
}

func TestStopUnknownRemote(t *testing.T) {
	r := NewRunner(&MockProcessManager{})
	if err := r.Stop("ghost"); !errors.Is(err, ErrRemoteNotRunning) {
		t.Fatalf("error = %v, want ErrRemoteNotRunning", err)
	}
}

func TestCrashReportedAsUnrequestedExit(t *testing.T) {
	crash := errors.New("exit status 1")
	exited := make(chan ExitEvent, 1)
	mock := &MockProcessManager{
		StartGroupFunc: func(ctx context.Context, dir, name string, args ...string) (int, func() error, error) {
			return 7, func() error { return crash }, nil
		},
	}
	r := NewRunner(mock, WithExitCallback(func(ev ExitEvent) { exited <- ev }))

	if err := r.Start(context.Background(), boundRemote("shop")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case ev := <-exited:
		if ev.Requested {
			t.Error("crash marked as requested exit")
		}
		if !errors.Is(ev.Err, crash) {
			t.Errorf("exit error = %v, want crash error", ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit event")
	}
}

func TestStopAll(t *testing.T) {
	var exits sync.WaitGroup
	exits.Add(2)
	mock, release := blockingMock()
	r := NewRunner(mock, WithExitCallback(func(ExitEvent) { exits.Done() }))

	for _, name := range []string{"shop", "cart"} {
		if err := r.Start(context.Background(), boundRemote(name)); err != nil {
			t.Fatalf("Start %s: %v", name, err)
		}
	}
	if err := r.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if got := mock.CallCount("SignalGroup"); got != 2 {
		t.Errorf("SignalGroup calls = %d, want 2", got)
	}

	close(release)
	done := make(chan struct{})
	go func() {
		exits.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reapers")
	}
	if len(r.Status()) != 0 {
		t.Errorf("Status = %v, want empty after StopAll", r.Status())
	}
}

func TestStatusSortedByName(t *testing.T) {
	mock, release := blockingMock()
	defer close(release)
	r := NewRunner(mock)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Start(context.Background(), boundRemote(name)); err != nil {
			t.Fatalf("Start %s: %v", name, err)
		}
	}

	statuses := r.Status()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.Name
	}
	if !reflect.DeepEqual(names, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("Status order = %v", names)
	}
}
