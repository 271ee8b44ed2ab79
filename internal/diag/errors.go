// Package diag holds the error taxonomy and the logger shared by every stage.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies fatal errors.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig       // invalid index, unresolvable sample, bad flags or tool config
	KindProcess      // external build/run/analysis exited non-zero
	KindIO           // missing or unwritable files and directories
	KindParse        // upstream contract violation (CSV shape, sample names)
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindProcess:
		return "process"
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a classified error. Op is the human description of what failed,
// Code the subprocess exit code for KindProcess.
type Error struct {
	Kind Kind
	Op   string
	Code int
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Config reports invalid user input.
func Config(op string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// Configf is Config with a formatted message and no cause.
func Configf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: fmt.Sprintf(format, args...)}
}

// Process reports a failed subprocess.
func Process(op string, code int, err error) error {
	return &Error{Kind: KindProcess, Op: op, Code: code, Err: err}
}

// IO reports a filesystem failure.
func IO(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// Parse reports malformed upstream data.
func Parse(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return KindUnknown
}

// ExitCode maps an error to a process exit status. Subprocess failures keep
// the child's code; everything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var derr *Error
	if errors.As(err, &derr) && derr.Kind == KindProcess && derr.Code > 0 {
		return derr.Code
	}
	return 1
}
