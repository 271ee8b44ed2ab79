package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrun/internal/diag"
	"graphrun/internal/model"
)

// fakeBuilder writes graphs[input] to the output path, or fails when the
// input is listed in fail.
type fakeBuilder struct {
	graphs map[string]string
	fail   map[string]bool
	skip   map[string]bool
	calls  []string
}

func (f *fakeBuilder) BuildGraph(_ context.Context, output string, inputs ...string) error {
	in := inputs[0]
	f.calls = append(f.calls, filepath.Base(in))
	if f.fail[in] {
		return diag.Process("Analyzer failed", 1, errors.New("exit status 1"))
	}
	if f.skip[in] {
		return nil
	}
	return os.WriteFile(output, []byte(f.graphs[in]), 0644)
}

type fixture struct {
	layout  model.Layout
	builder *fakeBuilder
	h       *Harness
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	layout := model.NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.SamplesDir, 0755))
	require.NoError(t, os.MkdirAll(layout.GoldensDir, 0755))
	b := &fakeBuilder{graphs: map[string]string{}, fail: map[string]bool{}, skip: map[string]bool{}}
	return &fixture{layout: layout, builder: b, h: New(b, layout, nil)}
}

func (f *fixture) sample(t *testing.T, index, graph string) model.Sample {
	t.Helper()
	p := filepath.Join(f.layout.SamplesDir, "sample_"+index+"_case.ts")
	require.NoError(t, os.WriteFile(p, []byte("// sample\n"), 0644))
	f.builder.graphs[p] = graph
	return model.Sample{Index: index, Path: p}
}

func (f *fixture) golden(t *testing.T, index, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.GoldensDir, "graph_"+index+".txt"), []byte(content), 0644))
}

func (f *fixture) outputPath(index string) string {
	return filepath.Join(f.layout.OutputDir, "graph_"+index+".txt")
}

func TestRunAll_PassLeavesNoOutput(t *testing.T) {
	f := newFixture(t)
	s := f.sample(t, "1", "digraph {\n0 [ label=\"a\" shape=\"box\" ]\n}\n")
	f.golden(t, "1", "digraph {\n0 [ label=\"a\" shape=\"box\" ]\n}\n")

	report, err := f.h.RunAll(context.Background(), []model.Sample{s}, false)

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, model.Passed, report.Results[0].Outcome)
	assert.False(t, report.AnyFailed)
	assert.True(t, report.OK())
	assert.Equal(t, model.Passed, report.Verdict())
	assert.NoFileExists(t, f.outputPath("1"))
}

func TestRunAll_MismatchFailsAndKeepsOutput(t *testing.T) {
	f := newFixture(t)
	s := f.sample(t, "2", "digraph {\n0 [ label=\"b\" shape=\"box\" ]\n}\n")
	f.golden(t, "2", "digraph {\n0 [ label=\"a\" shape=\"box\" ]\n}\n")

	report, err := f.h.RunAll(context.Background(), []model.Sample{s}, false)

	require.NoError(t, err)
	res := report.Results[0]
	assert.Equal(t, model.Failed, res.Outcome)
	assert.True(t, report.AnyFailed)
	assert.False(t, report.OK())
	assert.Equal(t, model.Failed, report.Verdict())
	assert.FileExists(t, f.outputPath("2"))
	assert.Contains(t, res.Diff, "+0 [ label=\"b\" shape=\"box\" ]")
	assert.Equal(t, 1, res.Stats.Added)
	assert.Equal(t, 1, res.Stats.Removed)
	assert.Len(t, report.Failed(), 1)
}

func TestRunAll_MissingGoldenIsFailure(t *testing.T) {
	f := newFixture(t)
	s := f.sample(t, "3", "digraph {}\n")

	report, err := f.h.RunAll(context.Background(), []model.Sample{s}, false)

	require.NoError(t, err)
	assert.Equal(t, model.Failed, report.Results[0].Outcome)
	assert.Equal(t, "golden file is missing", report.Results[0].Reason)
	assert.FileExists(t, f.outputPath("3"))
}

func TestRunAll_UpdateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.sample(t, "4", "digraph {\n1 [ label=\"x\" shape=\"ellipse\" ]\n}\n")

	first, err := f.h.RunAll(context.Background(), []model.Sample{s}, true)
	require.NoError(t, err)
	assert.Equal(t, model.Updated, first.Results[0].Outcome)
	assert.Equal(t, model.Updated, first.Verdict())

	golden, err := os.ReadFile(filepath.Join(f.layout.GoldensDir, "graph_4.txt"))
	require.NoError(t, err)
	assert.Equal(t, f.builder.graphs[s.Path], string(golden))
	assert.NoFileExists(t, f.outputPath("4"))

	second, err := f.h.RunAll(context.Background(), []model.Sample{s}, true)
	require.NoError(t, err)
	assert.Equal(t, model.Untouched, second.Results[0].Outcome)
	assert.False(t, second.AnyUpdated)
	assert.Equal(t, model.Untouched, second.Verdict())
}

func TestRunAll_NumericOrder(t *testing.T) {
	f := newFixture(t)
	var samples []model.Sample
	for _, idx := range []string{"10", "2", "1"} {
		samples = append(samples, f.sample(t, idx, "g\n"))
		f.golden(t, idx, "g\n")
	}

	report, err := f.h.RunAll(context.Background(), samples, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"sample_1_case.ts", "sample_2_case.ts", "sample_10_case.ts"}, f.builder.calls)
	var order []string
	for _, r := range report.Results {
		order = append(order, r.Sample.Index)
	}
	assert.Equal(t, []string{"1", "2", "10"}, order)
}

func TestRunAll_BuilderFailureDoesNotStopRun(t *testing.T) {
	f := newFixture(t)
	bad := f.sample(t, "1", "")
	good := f.sample(t, "2", "g\n")
	f.golden(t, "2", "g\n")
	f.builder.fail[bad.Path] = true

	report, err := f.h.RunAll(context.Background(), []model.Sample{good, bad}, false)

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, model.Failed, report.Results[0].Outcome)
	assert.Contains(t, report.Results[0].Reason, "Analyzer failed")
	assert.Equal(t, model.Passed, report.Results[1].Outcome)
	assert.True(t, report.AnyFailed)
}

func TestRunAll_NoGraphWritten(t *testing.T) {
	f := newFixture(t)
	s := f.sample(t, "5", "")
	f.builder.skip[s.Path] = true

	report, err := f.h.RunAll(context.Background(), []model.Sample{s}, true)

	require.NoError(t, err)
	assert.Equal(t, model.Failed, report.Results[0].Outcome)
	assert.True(t, report.AnyFailed)
	// Failures do not affect the exit signal while updating goldens.
	assert.True(t, report.OK())
}

func TestRunAll_GoldenWriteIsFatal(t *testing.T) {
	f := newFixture(t)
	first := f.sample(t, "1", "g\n")
	second := f.sample(t, "2", "g\n")

	f.h.copyFile = func(src, dst string) error {
		return &os.PathError{Op: "open", Path: dst, Err: os.ErrPermission}
	}

	_, err := f.h.RunAll(context.Background(), []model.Sample{first, second}, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGoldenWrite))
	assert.Equal(t, diag.KindIO, diag.KindOf(err))
	assert.Equal(t, []string{"sample_1_case.ts"}, f.builder.calls)
}

func TestSortedDoesNotMutateInput(t *testing.T) {
	in := []model.Sample{{Index: "10"}, {Index: "9"}}
	out := Sorted(in)
	assert.Equal(t, "10", in[0].Index)
	assert.Equal(t, "9", out[0].Index)
}

func TestSortedHandlesIndexesWiderThanInt(t *testing.T) {
	in := []model.Sample{{Index: "99999999999999999999"}, {Index: "2"}, {Index: "1"}}

	out := Sorted(in)

	var idx []string
	for _, s := range out {
		idx = append(idx, s.Index)
	}
	assert.Equal(t, []string{"1", "2", "99999999999999999999"}, idx)
}
