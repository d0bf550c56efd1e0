package execx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// Error reports a failed command together with whatever it printed on stderr.
type Error struct {
	Name     string
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	message := e.Stderr
	if message == "" {
		message = e.Err.Error()
	}
	return fmt.Sprintf("%s %s failed: %s", e.Name, firstArg(e.Args), message)
}

func (e *Error) Unwrap() error { return e.Err }

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Exec runs commands on the local machine.
type Exec struct{}

func (Exec) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return stdout.String(), &Error{
			Name:     name,
			Args:     args,
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: code,
			Err:      err,
		}
	}
	return stdout.String(), nil
}
