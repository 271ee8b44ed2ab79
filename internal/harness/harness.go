// Package harness runs every sample through the graph program and compares
// the result with its golden file.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"graphrun/internal/diag"
	"graphrun/internal/diff"
	"graphrun/internal/model"
)

// ErrGoldenWrite is fatal for the whole run.
var ErrGoldenWrite = errors.New("cannot write golden")

// GraphBuilder produces a graph artifact at output from the given inputs.
type GraphBuilder interface {
	BuildGraph(ctx context.Context, output string, inputs ...string) error
}

// Harness owns the output and golden directories for the duration of a run.
type Harness struct {
	Builder    GraphBuilder
	OutputDir  string
	GoldensDir string
	Log        *zap.Logger

	copyFile func(src, dst string) error
}

func New(builder GraphBuilder, layout model.Layout, log *zap.Logger) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{
		Builder:    builder,
		OutputDir:  layout.OutputDir,
		GoldensDir: layout.GoldensDir,
		Log:        log,
		copyFile:   model.CopyFile,
	}
}

// Result is the outcome of one sample.
type Result struct {
	Sample     model.Sample
	Outcome    model.Outcome
	OutputPath string
	GoldenPath string
	Reason     string // why a sample failed
	Diff       string // unified diff golden -> output for mismatches
	Stats      diff.Stats
}

// Report aggregates a run.
type Report struct {
	Results       []Result
	AnyFailed     bool
	AnyUpdated    bool
	UpdateGoldens bool
}

// Verdict is the single summary outcome. Golden updates take display
// priority over pass/fail.
func (r Report) Verdict() model.Outcome {
	switch {
	case r.UpdateGoldens && r.AnyUpdated:
		return model.Updated
	case r.UpdateGoldens:
		return model.Untouched
	case r.AnyFailed:
		return model.Failed
	default:
		return model.Passed
	}
}

// OK is the process-level success signal.
func (r Report) OK() bool {
	return r.UpdateGoldens || !r.AnyFailed
}

// Failed returns the failing results in run order.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == model.Failed {
			out = append(out, res)
		}
	}
	return out
}

// Sorted orders samples by numeric index; "10" comes after "2".
func Sorted(samples []model.Sample) []model.Sample {
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b model.Sample) int {
		return model.CompareIndex(a.Index, b.Index)
	})
	return sorted
}

// RunAll tests samples one at a time in index order. A failing sample does not
// stop the run; an unwritable golden store does.
func (h *Harness) RunAll(ctx context.Context, samples []model.Sample, updateGoldens bool) (Report, error) {
	report := Report{UpdateGoldens: updateGoldens}

	if err := os.MkdirAll(h.OutputDir, 0755); err != nil {
		return report, diag.IO("Failed to create output directory", err)
	}

	for _, s := range Sorted(samples) {
		res, err := h.runOne(ctx, s, updateGoldens)
		if err != nil {
			return report, err
		}

		h.Log.Info(fmt.Sprintf("Sample %s: %s", s.Index, res.Outcome),
			zap.String("sample", filepath.Base(s.Path)))

		report.Results = append(report.Results, res)
		report.AnyFailed = report.AnyFailed || res.Outcome == model.Failed
		report.AnyUpdated = report.AnyUpdated || res.Outcome == model.Updated
	}
	return report, nil
}

func (h *Harness) runOne(ctx context.Context, s model.Sample, updateGoldens bool) (Result, error) {
	golden := model.GoldenFor(h.GoldensDir, s)
	res := Result{
		Sample:     s,
		OutputPath: filepath.Join(h.OutputDir, s.OutputName()),
		GoldenPath: golden.Path,
	}

	if err := h.Builder.BuildGraph(ctx, res.OutputPath, s.Path); err != nil {
		res.Outcome = model.Failed
		res.Reason = err.Error()
		return res, nil
	}

	output, err := model.ReadLines(res.OutputPath)
	if err != nil {
		res.Outcome = model.Failed
		res.Reason = fmt.Sprintf("no graph written: %v", err)
		return res, nil
	}

	expected, goldenExists, err := readGolden(golden.Path)
	if err != nil {
		return res, err
	}
	differs := !goldenExists || diff.Differs(output, expected)

	switch {
	case updateGoldens && differs:
		if err := h.copy(res.OutputPath, golden.Path); err != nil {
			return res, diag.IO(fmt.Sprintf("Failed to update golden %s", golden.Path),
				fmt.Errorf("%w: %v", ErrGoldenWrite, err))
		}
		res.Outcome = model.Updated
	case updateGoldens:
		res.Outcome = model.Untouched
	case differs:
		res.Outcome = model.Failed
		h.describeMismatch(&res, expected, output, goldenExists)
	default:
		res.Outcome = model.Passed
	}

	// A failed sample's output stays in place for inspection.
	if res.Outcome != model.Failed {
		if err := os.Remove(res.OutputPath); err != nil {
			return res, diag.IO("Failed to remove sample output", err)
		}
	}
	return res, nil
}

func (h *Harness) copy(src, dst string) error {
	if h.copyFile == nil {
		return model.CopyFile(src, dst)
	}
	return h.copyFile(src, dst)
}

// readGolden treats a missing golden as an empty, differing reference.
func readGolden(path string) ([]string, bool, error) {
	lines, err := model.ReadLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, diag.IO(fmt.Sprintf("Failed to read golden %s", path), err)
	}
	return lines, true, nil
}

func (h *Harness) describeMismatch(res *Result, expected, output []string, goldenExists bool) {
	if !goldenExists {
		res.Reason = "golden file is missing"
	} else {
		res.Reason = "output differs from golden"
	}

	u, err := diff.Unified(expected, output, res.GoldenPath, res.OutputPath)
	if err != nil {
		h.Log.Warn("Cannot render diff", zap.String("sample", res.Sample.Index), zap.Error(err))
		return
	}
	res.Diff = u

	st, err := diff.Stat(u)
	if err != nil {
		h.Log.Warn("Cannot parse diff", zap.String("sample", res.Sample.Index), zap.Error(err))
		return
	}
	res.Stats = st
}
