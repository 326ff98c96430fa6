// Package executor carries out classified desktop actions: launching
// applications, file operations, browser openings, and system queries.
// Every action returns a structured Result; no action propagates a Go
// error or panic to the caller.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
)

// Result is the outcome of an action.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// actionFunc is one entry in the fixed action table.
type actionFunc func(ctx context.Context, params map[string]any) Result

// Executor owns the fixed action table. The zero value is not usable;
// construct with New.
type Executor struct {
	norm    *Normalizer
	logger  *slog.Logger
	actions map[string]actionFunc

	// lookPath and startDetached are injectable so tests never launch
	// real desktop applications.
	lookPath      func(name string) (string, error)
	startDetached func(name string, args ...string) error

	// runCommand captures combined output of short-lived queries
	// (process list, package search).
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates an Executor rooted at the user's home directory.
func New(logger *slog.Logger) *Executor {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}
	return NewWithHome(home, logger)
}

// NewWithHome creates an Executor with an explicit home directory.
func NewWithHome(home string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		norm:     NewNormalizer(home),
		logger:   logger,
		lookPath: exec.LookPath,
		startDetached: func(name string, args ...string) error {
			cmd := exec.Command(name, args...)
			cmd.Stdout = nil
			cmd.Stderr = nil
			if err := cmd.Start(); err != nil {
				return err
			}
			// Reap the child in the background so it never zombies.
			go func() { _ = cmd.Wait() }()
			return nil
		},
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
	e.actions = map[string]actionFunc{
		"open_app": e.openApp,

		"create_file": e.createFile,
		"delete_file": e.deleteFile,
		"move_file":   e.moveFile,
		"copy_file":   e.copyFile,
		"read_file":   e.readFile,
		"write_file":  e.writeFile,

		"open_url":   e.openURL,
		"search_web": e.searchWeb,

		"get_system_info":  e.systemInfo,
		"get_disk_usage":   e.diskUsage,
		"get_process_list": e.processList,
		"search_package":   e.searchPackage,
		"get_current_time": e.currentTime,
	}
	return e
}

// Normalizer returns the path normalizer the executor resolves
// user-facing paths with.
func (e *Executor) Normalizer() *Normalizer {
	return e.norm
}

// KnownActions returns the sorted action names of the fixed table.
func (e *Executor) KnownActions() []string {
	names := make([]string, 0, len(e.actions))
	for name := range e.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named action. Unknown actions and handler panics are
// reported as failure results, never raised.
func (e *Executor) Execute(ctx context.Context, action string, params map[string]any) (result Result) {
	if params == nil {
		params = map[string]any{}
	}

	fn, ok := e.actions[action]
	if !ok {
		return Result{
			Success: false,
			Message: fmt.Sprintf("不支持的操作: %s", action),
			Data:    map[string]any{"available_actions": e.KnownActions()},
		}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("executor: action panicked", "action", action, "panic", r)
			result = failure("执行失败: %v", r)
		}
	}()

	return fn(ctx, params)
}

// stringParam reads a string field from the params mapping; absent or
// non-string values yield "".
func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}
