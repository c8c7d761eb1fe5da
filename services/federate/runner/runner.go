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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// Runner errors.
var (
	// ErrRemoteNotRunning indicates no tracked process for a remote name.
	ErrRemoteNotRunning = errors.New("remote not running")

	// ErrRemoteAlreadyRunning indicates a start for an already-tracked
	// remote.
	ErrRemoteAlreadyRunning = errors.New("remote already running")

	// ErrRemoteNotBound indicates a remote without a confirmed folder or
	// start command.
	ErrRemoteNotBound = errors.New("remote has no confirmed folder and start command")

	// ErrCommandInvalid indicates a start command that failed validation.
	ErrCommandInvalid = errors.New("start command invalid")
)

// RemoteState is the lifecycle state of a tracked remote process.
type RemoteState string

const (
	StateRunning  RemoteState = "running"
	StateStopping RemoteState = "stopping"
)

// RemoteStatus is a snapshot of one tracked remote.
type RemoteStatus struct {
	Name      string      `json:"name"`
	PID       int         `json:"pid"`
	State     RemoteState `json:"state"`
	Command   string      `json:"command"`
	Folder    string      `json:"folder"`
	StartedAt time.Time   `json:"startedAt"`
}

// ExitEvent reports a remote process ending, delivered on the reaping
// goroutine after the runner's own bookkeeping is updated.
type ExitEvent struct {
	// Name is the remote's name.
	Name string

	// Err is the process's exit error, nil for a clean exit.
	Err error

	// Requested is true when the exit followed a Stop call.
	Requested bool
}

// procEntry is the runner's bookkeeping for one process.
type procEntry struct {
	status RemoteStatus
}

// Runner manages dev-server processes for confirmed remotes.
//
// # Description
//
// Start validates and splits the remote's confirmed start command, spawns
// it in the remote's folder in its own process group, and tracks it by
// remote name. Stop signals the whole group so shell wrappers and their
// children die together. A reaping goroutine per process waits for exit,
// clears the bookkeeping, and delivers an ExitEvent to the optional
// callback.
//
// # Thread Safety
//
// Safe for concurrent use; the process table is guarded by a mutex.
type Runner struct {
	pm     ProcessManager
	logger *slog.Logger
	onExit func(ExitEvent)

	mu    sync.Mutex
	procs map[string]*procEntry
	// stopping holds names with a Stop in flight, so the reaper can tell
	// requested exits from crashes.
	stopping map[string]bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExitCallback registers a callback for process exits. The callback
// runs on the reaping goroutine and must not block.
func WithExitCallback(fn func(ExitEvent)) RunnerOption {
	return func(r *Runner) {
		r.onExit = fn
	}
}

// NewRunner creates a Runner over a ProcessManager.
func NewRunner(pm ProcessManager, opts ...RunnerOption) *Runner {
	r := &Runner{
		pm:       pm,
		logger:   slog.Default(),
		procs:    make(map[string]*procEntry),
		stopping: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches a remote's dev server.
//
// The remote must carry a confirmed LocalProjectFolder and StartCommand
// (overlaid by the sidecar store). The context governs the spawned
// process's lifetime.
func (r *Runner) Start(ctx context.Context, remote federation.RemoteRef) error {
	if remote.LocalProjectFolder == "" || remote.StartCommand == "" {
		return fmt.Errorf("%w: %s", ErrRemoteNotBound, remote.Name)
	}

	words, err := SplitCommand(remote.StartCommand)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, running := r.procs[remote.Name]; running {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRemoteAlreadyRunning, remote.Name)
	}
	// Reserve the name before the (slow) spawn so two concurrent Starts
	// cannot race past each other.
	r.procs[remote.Name] = &procEntry{}
	r.mu.Unlock()

	pid, wait, err := r.pm.StartGroup(ctx, remote.LocalProjectFolder, words[0], words[1:]...)
	if err != nil {
		r.mu.Lock()
		delete(r.procs, remote.Name)
		r.mu.Unlock()
		return fmt.Errorf("start remote %s: %w", remote.Name, err)
	}

	status := RemoteStatus{
		Name:      remote.Name,
		PID:       pid,
		State:     StateRunning,
		Command:   remote.StartCommand,
		Folder:    remote.LocalProjectFolder,
		StartedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.procs[remote.Name] = &procEntry{status: status}
	r.mu.Unlock()

	r.logger.Info("started remote dev server",
		slog.String("component", "runner"),
		slog.String("remote", remote.Name),
		slog.Int("pid", pid),
		slog.String("command", remote.StartCommand),
	)

	go r.reap(remote.Name, wait)
	return nil
}

// reap waits for a process to exit and clears its bookkeeping.
func (r *Runner) reap(name string, wait func() error) {
	err := wait()

	r.mu.Lock()
	requested := r.stopping[name]
	delete(r.stopping, name)
	delete(r.procs, name)
	r.mu.Unlock()

	if err != nil && !requested {
		r.logger.Warn("remote dev server exited with error",
			slog.String("component", "runner"),
			slog.String("remote", name),
			slog.Any("error", err),
		)
	} else {
		r.logger.Info("remote dev server exited",
			slog.String("component", "runner"),
			slog.String("remote", name),
		)
	}

	if r.onExit != nil {
		r.onExit(ExitEvent{Name: name, Err: err, Requested: requested})
	}
}

// Stop terminates a remote's process group with SIGTERM.
func (r *Runner) Stop(name string) error {
	r.mu.Lock()
	entry, ok := r.procs[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRemoteNotRunning, name)
	}
	entry.status.State = StateStopping
	r.stopping[name] = true
	pid := entry.status.PID
	r.mu.Unlock()

	if err := r.pm.SignalGroup(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal remote %s: %w", name, err)
	}
	return nil
}

// StopAll terminates every tracked remote, collecting any signal errors.
func (r *Runner) StopAll() error {
	r.mu.Lock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	r.mu.Unlock()

	var errs []error
	for _, name := range names {
		if err := r.Stop(name); err != nil && !errors.Is(err, ErrRemoteNotRunning) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status returns a snapshot of tracked remotes, sorted by name.
func (r *Runner) Status() []RemoteStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]RemoteStatus, 0, len(r.procs))
	for _, entry := range r.procs {
		if entry.status.Name == "" {
			continue // reserved slot mid-start
		}
		statuses = append(statuses, entry.status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// Running reports whether a remote is tracked.
func (r *Runner) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.procs[name]
	return ok && entry.status.Name != ""
}

// SplitCommand validates a start command and splits it into argv words.
//
// # Description
//
// The command is parsed as shell syntax and must be exactly one simple
// command: no redirections, no pipes, no && / || / ; chains, no background
// operator, no environment assignments. Words are expanded literally
// (quotes and escapes honored) without consulting the real environment, so
// `pnpm run dev` and `"pnpm" run dev` both split to three words while
// `pnpm run dev > log` is rejected.
func SplitCommand(command string) ([]string, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty command", ErrCommandInvalid)
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(trimmed), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommandInvalid, err)
	}
	if len(file.Stmts) != 1 {
		return nil, fmt.Errorf("%w: expected one command, got %d statements", ErrCommandInvalid, len(file.Stmts))
	}

	stmt := file.Stmts[0]
	if stmt.Background || stmt.Coprocess || stmt.Negated {
		return nil, fmt.Errorf("%w: background and negation operators not allowed", ErrCommandInvalid)
	}
	if len(stmt.Redirs) > 0 {
		return nil, fmt.Errorf("%w: redirections not allowed", ErrCommandInvalid)
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return nil, fmt.Errorf("%w: control operators not allowed", ErrCommandInvalid)
	}
	if len(call.Assigns) > 0 {
		return nil, fmt.Errorf("%w: environment assignments not allowed", ErrCommandInvalid)
	}
	if len(call.Args) == 0 {
		return nil, fmt.Errorf("%w: no command word", ErrCommandInvalid)
	}

	cfg := &expand.Config{Env: expand.ListEnviron()}
	words := make([]string, 0, len(call.Args))
	for _, arg := range call.Args {
		word, err := expand.Literal(cfg, arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCommandInvalid, err)
		}
		words = append(words, word)
	}
	return words, nil
}
