// Package terminal is the side-channel pseudo-terminal helper the spec
// calls out as "separate from the extension core ... specified only
// where its contract is non-obvious" (spec §1). It has no dependency on
// the runtime's sandbox, resource table, or actor: a Terminal is a plain
// PTY-plus-child-process pair any collaborator (e.g. a task runner
// surfaced through the worktree delegate) can own independently of any
// loaded extension.
//
// Grounded on the original create_subprocess/read_from_fd/write_to_fd/
// wait_for/kill_process/set_pty_window_size operations, reimplemented
// against github.com/creack/pty instead of hand-rolled libc calls.
package terminal

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// Terminal is one pseudo-terminal plus the shell process attached to it.
type Terminal struct {
	cmd    *exec.Cmd
	master *os.File
}

// Open allocates a pseudo-terminal sized cols x rows, and spawns shell
// attached to it with cwd and env. RUST_BACKTRACE=full is not set here --
// that is the guest sandbox's baseline environment (internal/sandbox),
// not this side channel's.
func Open(shell string, cols, rows uint16, cwd string, env map[string]string) (*Terminal, error) {
	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = envSlice(env)

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("terminal: start %q: %w", shell, err)
	}
	return &Terminal{cmd: cmd, master: master}, nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// Resize updates the PTY's window size, the Go equivalent of
// set_pty_window_size's TIOCSWINSZ ioctl.
func (t *Terminal) Resize(cols, rows uint16) error {
	return pty.Setsize(t.master, &pty.Winsize{Rows: rows, Cols: cols})
}

// Write passes p through to the PTY master (the terminal emulator's
// input channel to the shell), corresponding to write_to_fd.
func (t *Terminal) Write(p []byte) (int, error) {
	return t.master.Write(p)
}

// Read pulls the shell's output off the PTY master, corresponding to
// read_from_fd. Unlike the original, it never truncates silently: a
// short read is simply what's available right now, exactly like any
// other io.Reader.
func (t *Terminal) Read(p []byte) (int, error) {
	return t.master.Read(p)
}

// Wait blocks for the child's exit, corresponding to wait_for. It
// reports the process's exit code, or -signal if the process was killed
// by a signal, matching the original's WIFSIGNALED branch.
func (t *Terminal) Wait() (int, error) {
	err := t.cmd.Wait()
	if err == nil {
		return t.cmd.ProcessState.ExitCode(), nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("terminal: wait: %w", err)
}

// Close closes the PTY master and signals the child to terminate,
// corresponding to close_fd plus kill_process.
func (t *Terminal) Close() error {
	if err := t.cmd.Process.Kill(); err != nil && !isProcessDone(err) {
		_ = t.master.Close()
		return fmt.Errorf("terminal: kill: %w", err)
	}
	return t.master.Close()
}

func isProcessDone(err error) bool {
	return err == os.ErrProcessDone
}
