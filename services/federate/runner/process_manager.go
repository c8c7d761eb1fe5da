// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner starts and stops remote dev servers from their confirmed
// start commands.
//
// All process execution goes through the ProcessManager interface so the
// lifecycle logic is testable without spawning real processes.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// ProcessManager abstracts external process operations.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ProcessManager interface {
	// StartGroup launches a command in its own process group and returns
	// the group leader's PID. The returned wait function blocks until the
	// process exits and reports its exit error.
	StartGroup(ctx context.Context, dir, name string, args ...string) (pid int, wait func() error, err error)

	// SignalGroup sends a signal to an entire process group.
	SignalGroup(pgid int, sig syscall.Signal) error
}

// DefaultProcessManager runs real OS processes.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates a DefaultProcessManager.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// StartGroup starts the command with Setpgid so the child and everything
// it spawns share one process group. Stderr is captured into the wait
// error; stdout is discarded.
func (p *DefaultProcessManager) StartGroup(ctx context.Context, dir, name string, args ...string) (int, func() error, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return 0, nil, fmt.Errorf("start %s: %w", name, err)
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			if stderr.Len() > 0 {
				return fmt.Errorf("%w: %s", err, stderr.String())
			}
			return err
		}
		return nil
	}
	return cmd.Process.Pid, wait, nil
}

// SignalGroup signals the whole group via the negative PID convention.
func (p *DefaultProcessManager) SignalGroup(pgid int, sig syscall.Signal) error {
	return unix.Kill(-pgid, sig)
}

// MockProcessManager is a test double with function fields and recorded
// calls.
type MockProcessManager struct {
	mu    sync.Mutex
	Calls []MockCall

	// StartGroupFunc overrides StartGroup; the default reports PID 1000+n
	// and a wait that returns nil immediately.
	StartGroupFunc func(ctx context.Context, dir, name string, args ...string) (int, func() error, error)

	// SignalGroupFunc overrides SignalGroup; the default records and
	// returns nil.
	SignalGroupFunc func(pgid int, sig syscall.Signal) error
}

// MockCall records one invocation.
type MockCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
	PGID   int
	Signal syscall.Signal
}

// StartGroup records the call and delegates to StartGroupFunc.
func (m *MockProcessManager) StartGroup(ctx context.Context, dir, name string, args ...string) (int, func() error, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "StartGroup", Dir: dir, Name: name, Args: args})
	n := len(m.Calls)
	m.mu.Unlock()

	if m.StartGroupFunc != nil {
		return m.StartGroupFunc(ctx, dir, name, args...)
	}
	return 1000 + n, func() error { return nil }, nil
}

// SignalGroup records the call and delegates to SignalGroupFunc.
func (m *MockProcessManager) SignalGroup(pgid int, sig syscall.Signal) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "SignalGroup", PGID: pgid, Signal: sig})
	m.mu.Unlock()

	if m.SignalGroupFunc != nil {
		return m.SignalGroupFunc(pgid, sig)
	}
	return nil
}

// CallCount returns the number of recorded calls for a method.
func (m *MockProcessManager) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// Compile-time interface checks.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
