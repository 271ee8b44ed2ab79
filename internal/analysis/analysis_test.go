package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphrun/internal/config"
	"graphrun/internal/diag"
	"graphrun/internal/inject"
	"graphrun/internal/runner"
)

const arraySizeRules = `
Decl size(Node, Param, Delta).
Decl final(Node, Param, Delta).
Decl delta_in_control(Node, Param, Delta).
Decl function_final_delta(Node, Param, Delta).

delta_in_control(N, P, D) :- size(N, P, D).
function_final_delta(N, P, D) :- final(N, P, D).
`

type workspace struct {
	rules   string
	facts   string
	results string
	graph   string
}

func newWorkspace(t *testing.T, rules string) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		rules:   filepath.Join(dir, "array_size.mg"),
		facts:   filepath.Join(dir, "output"),
		results: filepath.Join(dir, "output", "array_size"),
		graph:   filepath.Join(dir, "output", "graph.txt"),
	}
	require.NoError(t, os.MkdirAll(ws.facts, 0755))
	require.NoError(t, os.WriteFile(ws.rules, []byte(rules), 0644))
	require.NoError(t, os.WriteFile(ws.graph, []byte("digraph {\n5 [ label=\"foo\" shape=\"box\" ]\n6 [ label=\"bar\" shape=\"box\" ]\n}\n"), 0644))
	return ws
}

func (ws workspace) fact(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(ws.facts, name), []byte(content), 0644))
}

func (ws workspace) request() Request {
	return Request{
		Type:       config.AnalysisArraySize,
		Rules:      ws.rules,
		FactsDir:   ws.facts,
		ResultsDir: ws.results,
		GraphPath:  ws.graph,
	}
}

func TestMangle_EndToEnd(t *testing.T) {
	// --- Arrange ---
	ws := newWorkspace(t, arraySizeRules)
	ws.fact(t, "size.facts", "5,x,999\n")
	ws.fact(t, "final.facts", "5,x,2\n")
	ws.fact(t, "vertices.facts", "5,const,foo\n") // undeclared, ignored

	// --- Act ---
	err := Run(context.Background(), &Mangle{Log: zap.NewNop()}, ws.request(), nil)

	// --- Assert ---
	require.NoError(t, err)
	control, err := os.ReadFile(filepath.Join(ws.results, inject.ControlRelationFile))
	require.NoError(t, err)
	assert.Equal(t, "5,x,999\n", string(control))

	graph, err := os.ReadFile(ws.graph)
	require.NoError(t, err)
	assert.Contains(t, string(graph), `5 [ label="foo\np(x):d(T)\n--------\nfinal delta\np(x):d(2)" shape="box" ]`)
	assert.Contains(t, string(graph), `6 [ label="bar" shape="box" ]`)
}

func TestMangle_MissingOutputPredicate(t *testing.T) {
	ws := newWorkspace(t, "Decl size(Node, Param, Delta).\nDecl delta_in_control(Node, Param, Delta).\ndelta_in_control(N, P, D) :- size(N, P, D).\n")

	err := (&Mangle{}).Evaluate(context.Background(), ws.rules, ws.facts, t.TempDir())

	require.Error(t, err)
	assert.Equal(t, diag.KindParse, diag.KindOf(err))
	assert.Contains(t, err.Error(), "function_final_delta")
}

func TestMangle_InvalidRules(t *testing.T) {
	ws := newWorkspace(t, "this is not datalog(")

	err := (&Mangle{}).Evaluate(context.Background(), ws.rules, ws.facts, t.TempDir())

	require.Error(t, err)
	assert.Equal(t, diag.KindParse, diag.KindOf(err))
}

func TestMangle_MalformedFacts(t *testing.T) {
	ws := newWorkspace(t, arraySizeRules)
	ws.fact(t, "size.facts", "5,x\n")

	err := (&Mangle{}).Evaluate(context.Background(), ws.rules, ws.facts, t.TempDir())

	require.Error(t, err)
	assert.Equal(t, diag.KindParse, diag.KindOf(err))
}

type recordingExec struct {
	argv []string
	err  error
	run  func(argv []string)
}

func (r *recordingExec) Exec(_ context.Context, _, _ string, argv []string) error {
	r.argv = argv
	if r.run != nil {
		r.run(argv)
	}
	return r.err
}

func TestSouffle_Arguments(t *testing.T) {
	ws := newWorkspace(t, "// souffle rules\n")
	exec := &recordingExec{run: func(argv []string) {
		out := argv[len(argv)-1]
		_ = os.WriteFile(filepath.Join(out, inject.ControlRelationFile), []byte("6,n,3\n"), 0644)
		_ = os.WriteFile(filepath.Join(out, inject.FunctionRelationFile), []byte(""), 0644)
	}}
	eng, err := NewEngine(config.AnalysisTool{Engine: config.EngineSouffle, Command: "souffle -j 4"}, exec, nil)
	require.NoError(t, err)

	err = Run(context.Background(), eng, ws.request(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"souffle", "-j", "4", ws.rules, "-F", ws.facts, "-D", ws.results}, exec.argv)
	graph, err := os.ReadFile(ws.graph)
	require.NoError(t, err)
	assert.Contains(t, string(graph), `6 [ label="bar\np(n):d(3)" shape="box" ]`)
}

func TestSouffle_FailureIsProcessError(t *testing.T) {
	ws := newWorkspace(t, "// rules\n")
	exec := &recordingExec{err: diag.Process("Analysis failed", 4, errors.New("exit status 4"))}

	err := Run(context.Background(), &Souffle{Command: "souffle", Exec: exec}, ws.request(), nil)

	require.Error(t, err)
	assert.Equal(t, 4, diag.ExitCode(err))
}

func TestSouffle_MissingRelationsIsIOError(t *testing.T) {
	ws := newWorkspace(t, "// rules\n")

	err := Run(context.Background(), &Souffle{Command: "souffle", Exec: &recordingExec{}}, ws.request(), nil)

	require.Error(t, err)
	assert.Equal(t, diag.KindIO, diag.KindOf(err))
}

func TestSouffle_WithRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	ws := newWorkspace(t, "// rules\n")
	tool := filepath.Join(t.TempDir(), "souffle.sh")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\nprintf '5,x,1\\n' > \"$5/delta_in_control.csv\"\n: > \"$5/function_final_delta.csv\"\n"), 0755))

	r := runner.New(zap.NewNop(), "", "", "")
	err := Run(context.Background(), &Souffle{Command: tool, Exec: r}, ws.request(), nil)

	require.NoError(t, err)
	graph, err := os.ReadFile(ws.graph)
	require.NoError(t, err)
	assert.Contains(t, string(graph), `5 [ label="foo\np(x):d(1)" shape="box" ]`)
}

func TestRun_MissingRules(t *testing.T) {
	ws := newWorkspace(t, "")
	req := ws.request()
	req.Rules = filepath.Join(t.TempDir(), "missing.dl")

	err := Run(context.Background(), &Mangle{}, req, nil)

	require.Error(t, err)
	assert.Equal(t, diag.KindConfig, diag.KindOf(err))
}

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(config.AnalysisTool{Engine: config.EngineMangle}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mangle", eng.Name())

	_, err = NewEngine(config.AnalysisTool{Engine: "prolog"}, nil, nil)
	require.Error(t, err)
}
