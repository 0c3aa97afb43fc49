package restart

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// Process is one entry of the host process table.
type Process interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Cmdline(ctx context.Context) ([]string, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)
}

// ProcessTable enumerates running processes.
type ProcessTable interface {
	Processes(ctx context.Context) ([]Process, error)
}

// SystemProcessTable reads the real process table through gopsutil.
type SystemProcessTable struct{}

// Processes lists every process visible to this user
func (SystemProcessTable) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, systemProcess{p: p})
	}
	return out, nil
}

type systemProcess struct {
	p *process.Process
}

func (s systemProcess) PID() int32 { return s.p.Pid }

func (s systemProcess) Name(ctx context.Context) (string, error) {
	return s.p.NameWithContext(ctx)
}

func (s systemProcess) Cmdline(ctx context.Context) ([]string, error) {
	return s.p.CmdlineSliceWithContext(ctx)
}

func (s systemProcess) Terminate(ctx context.Context) error {
	return s.p.TerminateWithContext(ctx)
}

func (s systemProcess) Kill(ctx context.Context) error {
	return s.p.KillWithContext(ctx)
}

func (s systemProcess) IsRunning(ctx context.Context) (bool, error) {
	return s.p.IsRunningWithContext(ctx)
}
