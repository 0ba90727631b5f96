// Package execbind invokes tools backed by local commands.
//
// The command line is built from argv templates with {name} placeholders.
// The full argument object is written to the process's stdin as JSON and
// stdout becomes the tool output. A non-zero exit status is a
// *tools.TransportError carrying the first line of stderr.
package execbind

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/rhuss/tooldrive/pkg/catalog"
	"github.com/rhuss/tooldrive/pkg/tools"
)

// Binding runs one command per tool call.
type Binding struct {
	// Command is the executable, resolved through PATH.
	Command string

	// Args are argv templates; {name} is replaced by the argument value.
	Args []string

	// Env adds KEY=VALUE entries to the inherited environment.
	Env []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// WaitDelay bounds how long output pipes are drained after the process
	// is killed on cancellation.
	WaitDelay time.Duration
}

// Ensure Binding implements the binding contracts at compile time.
var (
	_ catalog.Binding = (*Binding)(nil)
	_ tools.Exposer   = (*Binding)(nil)
)

// New creates a Binding for command with argv templates.
func New(command string, args ...string) *Binding {
	return &Binding{
		Command:   command,
		Args:      args,
		WaitDelay: 2 * time.Second,
	}
}

// Exposure reports the argument names placed on the command line.
func (b *Binding) Exposure() tools.Exposure {
	var fields []string
	seen := make(map[string]bool)
	for _, a := range b.Args {
		for _, name := range tools.Placeholders(a) {
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
		}
	}
	return tools.Exposure{Fields: fields}
}

// Invoke runs the command and returns its standard output.
func (b *Binding) Invoke(ctx context.Context, args map[string]any) (string, error) {
	argv := make([]string, 0, len(b.Args))
	for _, tmpl := range b.Args {
		a, err := tools.Expand(tmpl, args, nil)
		if err != nil {
			return "", err
		}
		argv = append(argv, a)
	}

	stdin, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding arguments: %w", err)
	}

	cmd := osexec.CommandContext(ctx, b.Command, argv...)
	cmd.Dir = b.Dir
	cmd.WaitDelay = b.WaitDelay
	if len(b.Env) > 0 {
		cmd.Env = append(os.Environ(), b.Env...)
	}
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			return "", &tools.TransportError{
				StatusCode: exitErr.ExitCode(),
				Message:    fmt.Sprintf("%s exited with status %d: %s", b.Command, exitErr.ExitCode(), firstLine(stderr.String())),
			}
		}
		return "", &tools.TransportError{Message: "starting " + b.Command, Err: err}
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no error output"
	}
	return s
}
