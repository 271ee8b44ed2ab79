// Package runner invokes the external toolchain: the compiler that builds the
// graph program and the runtime that executes it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"graphrun/internal/diag"
)

// Runner holds the resolved commands. Compiler and Runtime may carry extra
// words ("npx tsc"); they are split on whitespace.
type Runner struct {
	Compiler   string
	Runtime    string
	EntryPoint string // path to the built entry point, e.g. build/main.js
	Dir        string // working directory of every child; "" is the caller's

	Stdout io.Writer
	Stderr io.Writer
	Log    *zap.Logger
}

// New returns a Runner that forwards child output to the terminal.
func New(log *zap.Logger, compiler, runtime, entryPoint string) *Runner {
	return &Runner{
		Compiler:   compiler,
		Runtime:    runtime,
		EntryPoint: entryPoint,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Log:        log,
	}
}

// Compile runs `<compiler> <sources...> --outDir <outDir>`.
func (r *Runner) Compile(ctx context.Context, sources []string, outDir string) error {
	argv := append(strings.Fields(r.Compiler), sources...)
	argv = append(argv, "--outDir", outDir)
	return r.Exec(ctx, "Build failed", "Running build command", argv)
}

// BuildGraph runs `<runtime> <entry point> <output> <inputs...>`.
func (r *Runner) BuildGraph(ctx context.Context, output string, inputs ...string) error {
	argv := append(strings.Fields(r.Runtime), r.EntryPoint, output)
	argv = append(argv, inputs...)
	return r.Exec(ctx, "Analyzer failed", "Running analyzer", argv)
}

// Exec runs argv to completion. There is no timeout: a hanging tool blocks
// the caller. A non-zero exit becomes a process error carrying the child's
// exit code.
func (r *Runner) Exec(ctx context.Context, failure, intent string, argv []string) error {
	if len(argv) == 0 {
		return diag.Configf("%s: empty command", failure)
	}
	cmdline := strings.Join(argv, " ")
	r.logger().Info(intent, zap.String("cmd", cmdline))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return diag.Process(failure, code, fmt.Errorf("%s: %w", cmdline, err))
	}
	return nil
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
