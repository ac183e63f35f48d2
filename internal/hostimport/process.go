package hostimport

import (
	"context"
	"fmt"
)

type runCommandArg struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

type runCommandResult struct {
	Stdout   []byte `json:"stdout,omitempty"`
	Stderr   []byte `json:"stderr,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// processRunCommand consults the capability granter synchronously, before
// the collaborator is ever contacted (spec §4.G, testable property 7).
// A denial is returned to the guest as an error string; the process is
// never spawned.
func (d *Dispatcher) processRunCommand(ctx context.Context, arg runCommandArg) (runCommandResult, error) {
	if err := d.granter.GrantExec(arg.Command, arg.Args); err != nil {
		return runCommandResult{}, err
	}
	if d.collab.Process == nil {
		panic(fmt.Errorf("hostimport: no process collaborator configured"))
	}
	out, err := d.collab.Process.Run(ctx, arg.Command, arg.Args, arg.Env)
	if err != nil {
		return runCommandResult{}, err
	}
	return runCommandResult{Stdout: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}, nil
}
