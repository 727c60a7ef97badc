package recovery

import (
	"fmt"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/filewarden/filewarden/pkg/events"
)

// ProcessHandle identifies a process holding a protected file open.
type ProcessHandle struct {
	PID  int32
	Name string
}

// FindProcessesUsing returns every live process with path among its open
// files. Tolerates the platform facility being unavailable — a process
// whose open-files list can't be read (commonly permission-denied on
// another user's process) is skipped rather than failing the whole query.
func (e *Engine) FindProcessesUsing(path string) ([]ProcessHandle, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("recovery: find_processes_using: %w", err)
	}

	var holders []ProcessHandle
	for _, p := range procs {
		files, err := p.OpenFiles()
		if err != nil {
			continue
		}
		for _, of := range files {
			if of.Path == path {
				name, _ := p.Name()
				holders = append(holders, ProcessHandle{PID: p.Pid, Name: name})
				break
			}
		}
	}
	return holders, nil
}

// Terminate sends a polite SIGTERM, or SIGKILL when force is true, to pid,
// then checks whether the process is still running: after SIGTERM a
// still-running process is not an error; after SIGKILL it is.
func (e *Engine) Terminate(pid int32, force bool) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}

	name, _ := p.Name()
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}

	if err := p.SendSignal(sig); err != nil {
		return fmt.Errorf("recovery: terminate: %w", err)
	}

	if running, _ := p.IsRunning(); running {
		if !force {
			return nil // polite signal sent; caller may escalate to force later
		}
		return fmt.Errorf("recovery: terminate: pid %d still running after SIGKILL", pid)
	}

	e.emit(events.TypeProcessTerminated, events.SeverityWarning, "", map[string]any{"pid": pid, "process_name": name, "forced": force})
	return nil
}
