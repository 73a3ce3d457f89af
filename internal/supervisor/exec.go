package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"slices"
)

// InstanceIDFlag is passed to the widget followed by the instance id.
const InstanceIDFlag = "--instance-id"

// WidgetArgs returns the full command line for id.
func WidgetArgs(command []string, id string) []string {
	return append(slices.Clone(command), InstanceIDFlag, id)
}

// ExecSpawner starts the widget as a child process.
type ExecSpawner struct {
	Command []string
	Dir     string
	Env     []string
}

// Spawn starts the widget. The process is not bound to ctx: widgets
// outlive the request that launched them.
func (e ExecSpawner) Spawn(_ context.Context, id string) (Process, error) {
	if len(e.Command) == 0 {
		return nil, errors.New("widget command is not configured")
	}
	args := WidgetArgs(e.Command, id)
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // G204: command from user config
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = e.Env
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) PID() int { return p.cmd.Process.Pid }

func (p execProcess) Wait() error { return p.cmd.Wait() }
