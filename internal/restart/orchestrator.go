// Package restart performs a full in-place restart of the bot: it drains the
// task queue, kills orphaned browser-automation processes, releases memory and
// driver caches, and relaunches the process through the management script or
// by re-executing itself.
package restart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Beyllin/link/internal/config"
	"github.com/Beyllin/link/internal/redact"
	"github.com/Beyllin/link/internal/task"
)

// ErrRestartInProgress is reported when a restart is requested while another runs
var ErrRestartInProgress = errors.New("restart already in progress")

// Messages returned by Restart
const (
	MsgInProgress = "A restart is already in progress, please wait."
	msgSuccess    = "Bot restarted successfully"
	msgFailure    = "Restart failed"
	msgBackground = "Restart script running in background"
	msgNoOutput   = "no output"
)

// Queue is the part of the task queue the restart sequence drives.
type Queue interface {
	Status() task.QueueStatus
	Shutdown(ctx context.Context) error
}

// ExecFunc replaces the current process image. syscall.Exec by default.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Orchestrator runs the restart sequence, one at a time.
type Orchestrator struct {
	queue     Queue
	processes ProcessTable
	config    config.RestartConfig
	logger    *slog.Logger

	exec       ExecFunc
	executable func() (string, error)
	args       []string
	pollEvery  time.Duration

	running atomic.Bool
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithProcessTable swaps the process table used to find browser processes
func WithProcessTable(table ProcessTable) Option {
	return func(o *Orchestrator) { o.processes = table }
}

// WithExec swaps the self-exec fallback
func WithExec(fn ExecFunc) Option {
	return func(o *Orchestrator) { o.exec = fn }
}

// WithArgs sets the argv passed to the self-exec fallback
func WithArgs(args []string) Option {
	return func(o *Orchestrator) { o.args = args }
}

// NewOrchestrator creates a restart orchestrator for queue
func NewOrchestrator(queue Queue, cfg config.RestartConfig, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		queue:      queue,
		processes:  SystemProcessTable{},
		config:     cfg,
		logger:     logger.With("component", "restart"),
		exec:       syscall.Exec,
		executable: os.Executable,
		args:       os.Args,
		pollEvery:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InProgress reports whether a restart is currently running
func (o *Orchestrator) InProgress() bool {
	return o.running.Load()
}

// Restart runs the full restart sequence on behalf of owner and returns a
// report for the user. Cleanup steps are best effort; only a failed
// relaunch is reported as a failure. A concurrent call returns
// MsgInProgress immediately.
//
// The sequence ignores cancellation of ctx: each step is bounded by its own
// configured timeout, so a caller that goes away cannot skip the queue drain
// or the browser grace period.
func (o *Orchestrator) Restart(ctx context.Context, owner string) string {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn("restart rejected", "owner", owner, "error", ErrRestartInProgress)
		return MsgInProgress
	}
	defer o.running.Store(false)

	ctx = context.WithoutCancel(ctx)

	logger := o.logger.With("owner", owner)
	logger.Warn("starting full restart")

	logger.Info("stopping task queue")
	dropped := o.stopQueue(ctx)

	logger.Info("cleaning up browser processes")
	killed := o.killBrowsers(ctx)

	logger.Info("releasing system resources")
	removed := o.releaseResources()

	logger.Info("relaunching")
	report, err := o.relaunch()
	if err != nil {
		logger.Error("restart failed", "error", redact.Error(err))
		return fmt.Sprintf("%s: %s", msgFailure, redact.Error(err))
	}

	summary := fmt.Sprintf("Dropped tasks: %d\nBrowser processes stopped: %d\nCache entries removed: %d",
		dropped, killed, removed)
	logger.Info("restart completed",
		"dropped_tasks", dropped,
		"processes_killed", killed,
		"cache_entries_removed", removed)
	return fmt.Sprintf("%s\n\n%s\n\n%s", msgSuccess, summary, report)
}

// stopQueue shuts the queue down and returns how many tasks it leaves
// behind unfinished
func (o *Orchestrator) stopQueue(ctx context.Context) int {
	before := o.queue.Status()
	if err := o.queue.Shutdown(ctx); err != nil {
		o.logger.Warn("task queue did not stop cleanly", "error", err)
	}
	after := o.queue.Status()

	dropped := after.Pending + after.Active
	o.logger.Info("task queue stopped",
		"pending_before", before.Pending,
		"active_before", before.Active,
		"pending_dropped", after.Pending,
		"active_dropped", after.Active)
	return dropped
}

// matches reports whether a process looks like a browser this service launched
func (o *Orchestrator) matches(name string, cmdline []string) bool {
	name = strings.ToLower(name)
	nameHit := false
	for _, n := range o.config.ProcessNames {
		if strings.Contains(name, strings.ToLower(n)) {
			nameHit = true
			break
		}
	}
	if !nameHit {
		return false
	}

	args := strings.ToLower(strings.Join(cmdline, " "))
	for _, marker := range o.config.CmdlineMarkers {
		if strings.Contains(args, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// killBrowsers terminates matching processes, waits out the grace period and
// kills whatever is left. Returns the number of processes signalled.
func (o *Orchestrator) killBrowsers(ctx context.Context) int {
	procs, err := o.processes.Processes(ctx)
	if err != nil {
		o.logger.Error("failed to list processes", "error", err)
		return 0
	}

	self := int32(os.Getpid())
	var targets []Process
	for _, p := range procs {
		if p.PID() == self {
			continue
		}
		// processes can vanish or deny access mid-scan
		name, err := p.Name(ctx)
		if err != nil {
			continue
		}
		cmdline, err := p.Cmdline(ctx)
		if err != nil {
			continue
		}
		if !o.matches(name, cmdline) {
			continue
		}

		o.logger.Debug("terminating process", "pid", p.PID(), "name", name)
		if err := p.Terminate(ctx); err != nil {
			o.logger.Debug("terminate failed", "pid", p.PID(), "error", err)
		}
		targets = append(targets, p)
	}

	if len(targets) == 0 {
		o.logger.Info("browser processes terminated", "count", 0)
		return 0
	}

	survivors := o.waitForExit(ctx, targets)
	for _, p := range survivors {
		if err := p.Kill(ctx); err != nil {
			o.logger.Warn("failed to kill process", "pid", p.PID(), "error", err)
			continue
		}
		o.logger.Debug("process force killed", "pid", p.PID())
	}

	o.logger.Info("browser processes terminated",
		"count", len(targets),
		"force_killed", len(survivors))
	return len(targets)
}

// waitForExit polls until every process has exited or the grace period ends
func (o *Orchestrator) waitForExit(ctx context.Context, procs []Process) []Process {
	deadline := time.Now().Add(o.config.KillGracePeriod)
	alive := procs
	for {
		var still []Process
		for _, p := range alive {
			if running, err := p.IsRunning(ctx); err == nil && running {
				still = append(still, p)
			}
		}
		alive = still
		if len(alive) == 0 || !time.Now().Before(deadline) {
			return alive
		}

		select {
		case <-ctx.Done():
			return alive
		case <-time.After(o.pollEvery):
		}
	}
}

// releaseResources returns freed memory to the OS and deletes driver caches.
// Returns the number of cache entries removed.
func (o *Orchestrator) releaseResources() int {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)
	o.logger.Debug("memory released",
		"heap_alloc_before", before.HeapAlloc,
		"heap_alloc_after", after.HeapAlloc,
		"heap_released", after.HeapReleased)

	removed := 0
	for _, pattern := range o.config.CacheDirs {
		expanded, err := expandHome(pattern)
		if err != nil {
			o.logger.Warn("failed to expand cache path", "pattern", pattern, "error", err)
			continue
		}
		matches, err := filepath.Glob(expanded)
		if err != nil {
			o.logger.Warn("invalid cache pattern", "pattern", pattern, "error", err)
			continue
		}
		for _, path := range matches {
			if err := os.RemoveAll(path); err != nil {
				o.logger.Warn("failed to remove cache", "path", path, "error", err)
				continue
			}
			removed++
			o.logger.Debug("cache removed", "path", path)
		}
	}

	o.logger.Info("cache directories cleaned", "count", removed)
	return removed
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// relaunch starts the management script, falling back to re-executing the
// current binary when the script is missing or cannot be started
func (o *Orchestrator) relaunch() (string, error) {
	if _, err := os.Stat(o.config.ScriptPath); err != nil {
		o.logger.Warn("restart script not found, re-executing process",
			"script", o.config.ScriptPath)
		return o.selfExec()
	}

	report, err := o.runScript()
	if err != nil {
		o.logger.Error("restart script failed to start, re-executing process",
			"script", o.config.ScriptPath,
			"error", err)
		return o.selfExec()
	}
	return report, nil
}

// runScript starts "script restart" and collects its output for up to
// ScriptTimeout. A script still running at the deadline is left alone.
func (o *Orchestrator) runScript() (string, error) {
	cmd := exec.Command(o.config.ScriptPath, "restart")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	o.logger.Info("running restart script", "script", o.config.ScriptPath)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", o.config.ScriptPath, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(o.config.ScriptTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		out := strings.TrimSpace(stdout.String())
		if out == "" {
			out = msgNoOutput
		}
		if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
			out += "\nErrors: " + errOut
		}
		if err != nil {
			o.logger.Warn("restart script exited with error", "error", err)
			out += "\nExit: " + err.Error()
		} else {
			o.logger.Info("restart script finished")
		}
		return out, nil
	case <-timer.C:
		o.logger.Info("restart script still running, leaving it in background")
		return msgBackground, nil
	}
}

// selfExec replaces the current process with a fresh copy of itself.
// On success the real exec never returns.
func (o *Orchestrator) selfExec() (string, error) {
	path, err := o.executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}

	o.logger.Warn("re-executing process", "path", path, "args", o.args)
	if err := o.exec(path, o.args, os.Environ()); err != nil {
		return "", fmt.Errorf("failed to re-execute %s: %w", path, err)
	}
	return "Process re-executed", nil
}
