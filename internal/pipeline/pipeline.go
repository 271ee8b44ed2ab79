// Package pipeline sequences the stages of one invocation:
// Clean, Build, Run or Test, Analyze, Finish.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"graphrun/internal/analysis"
	"graphrun/internal/catalog"
	"graphrun/internal/config"
	"graphrun/internal/diag"
	"graphrun/internal/harness"
	"graphrun/internal/runner"
)

// Toolchain is the set of external collaborators; runner.Runner implements it.
type Toolchain interface {
	Compile(ctx context.Context, sources []string, outDir string) error
	BuildGraph(ctx context.Context, output string, inputs ...string) error
	Exec(ctx context.Context, failure, intent string, argv []string) error
}

// Pipeline runs the stages for a resolved configuration.
type Pipeline struct {
	Config    config.PipelineConfig
	Tools     config.Tools
	Toolchain Toolchain
	Log       *zap.Logger
	Out       io.Writer // verdict and diffs
}

// New wires the real toolchain from the tool configuration.
func New(cfg config.PipelineConfig, tools config.Tools, log *zap.Logger, out io.Writer) *Pipeline {
	entry := filepath.Join(cfg.Layout.BuildDir, tools.EntryPoint)
	// The graph program writes its facts to ./output, so it must run in the root.
	r := runner.New(log, tools.Compiler, tools.Runtime, entry)
	r.Dir = cfg.Layout.Root
	return &Pipeline{
		Config:    cfg,
		Tools:     tools,
		Toolchain: r,
		Log:       log,
		Out:       out,
	}
}

// Summary is what an invocation produced.
type Summary struct {
	Report    *harness.Report // set in test mode
	GraphPath string          // set after a normal run with inputs
	Analyzed  bool
}

// OK is false only when a test run (not updating goldens) had failures.
func (s Summary) OK() bool {
	return s.Report == nil || s.Report.OK()
}

// Run executes every stage in order. The first fatal error stops the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	if err := p.Clean(); err != nil {
		return sum, err
	}
	if err := p.Build(ctx); err != nil {
		return sum, err
	}

	if p.Config.Test {
		report, err := p.Test(ctx)
		if err != nil {
			return sum, err
		}
		sum.Report = &report
	} else {
		graph, err := p.RunGraph(ctx)
		if err != nil {
			return sum, err
		}
		sum.GraphPath = graph

		analyzed, err := p.Analyze(ctx, graph)
		if err != nil {
			return sum, err
		}
		sum.Analyzed = analyzed
	}

	p.Finish(sum)
	return sum, nil
}

// Clean removes the output and build directories when requested.
func (p *Pipeline) Clean() error {
	if !p.Config.Clean {
		return nil
	}
	dirs := []struct{ path, name string }{
		{p.Config.Layout.OutputDir, "output"},
		{p.Config.Layout.BuildDir, "build"},
	}
	for _, d := range dirs {
		p.Log.Info(fmt.Sprintf("Removing %s directory", d.name))
		if err := os.RemoveAll(d.path); err != nil {
			return diag.IO(fmt.Sprintf("Failed to remove existing %s directory", d.name), err)
		}
	}
	return nil
}

// Build compiles every file under the sources directory.
func (p *Pipeline) Build(ctx context.Context) error {
	if !p.Config.Build {
		p.Log.Info("Skipping build stage")
		return nil
	}

	sources, err := collectSources(p.Config.Layout.SourcesDir)
	if err != nil {
		return err
	}
	if err := p.Toolchain.Compile(ctx, sources, p.Config.Layout.BuildDir); err != nil {
		return err
	}
	p.Log.Info("Build finished successfully")
	return nil
}

// collectSources walks dir recursively in lexical order.
func collectSources(dir string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, diag.IO("Failed to collect sources", err)
	}
	return sources, nil
}

// RunGraph builds one graph from the requested samples and inputs. It
// returns "" when nothing was requested.
func (p *Pipeline) RunGraph(ctx context.Context) (string, error) {
	p.Log.Info("Collecting input files")

	samples, err := catalog.New(p.Config.Layout.SamplesDir).Resolve(p.Config.Samples, false)
	if err != nil {
		return "", err
	}
	extra, err := catalog.Inputs(p.Config.Inputs)
	if err != nil {
		return "", err
	}

	inputs := make([]string, 0, len(samples)+len(extra))
	for _, s := range samples {
		inputs = append(inputs, s.Path)
	}
	inputs = append(inputs, extra...)

	if len(inputs) == 0 {
		p.Log.Info("No samples or inputs were specified")
		return "", nil
	}
	if err := p.prepareOutput(); err != nil {
		return "", err
	}

	output := filepath.Join(p.Config.Layout.OutputDir, p.Config.Output)
	if err := p.Toolchain.BuildGraph(ctx, output, inputs...); err != nil {
		return "", err
	}
	p.Log.Info("Analyzer finished successfully")
	return output, nil
}

// Test runs the golden harness over the requested samples, or all of them.
func (p *Pipeline) Test(ctx context.Context) (harness.Report, error) {
	if len(p.Config.Inputs) > 0 {
		p.Log.Warn("Input files are not golden-tested and are ignored in test mode")
	}
	if p.Config.Analysis != config.AnalysisNone {
		p.Log.Warn("Analysis is skipped in test mode", zap.String("analysis", string(p.Config.Analysis)))
	}

	samples, err := catalog.New(p.Config.Layout.SamplesDir).Resolve(p.Config.Samples, true)
	if err != nil {
		return harness.Report{}, err
	}
	if err := p.prepareOutput(); err != nil {
		return harness.Report{}, err
	}

	h := harness.New(p.Toolchain, p.Config.Layout, p.Log)
	return h.RunAll(ctx, samples, p.Config.UpdateGoldens)
}

func (p *Pipeline) prepareOutput() error {
	if info, err := os.Stat(p.Config.Layout.BuildDir); err != nil || !info.IsDir() {
		return diag.IO("Build directory does not exist", err)
	}
	p.Log.Info("Creating output directory")
	if err := os.MkdirAll(p.Config.Layout.OutputDir, 0755); err != nil {
		return diag.IO("Failed to create output directory", err)
	}
	return nil
}

// Analyze runs the selected analysis over a freshly built graph and reports
// whether it ran.
func (p *Pipeline) Analyze(ctx context.Context, graph string) (bool, error) {
	kind := p.Config.Analysis
	if kind == config.AnalysisNone || graph == "" {
		return false, nil
	}

	tool := p.Tools.Analysis(kind, p.Config.Layout)
	eng, err := analysis.NewEngine(tool, p.Toolchain, p.Log)
	if err != nil {
		return false, err
	}

	req := analysis.Request{
		Type:       kind,
		Rules:      tool.Rules,
		FactsDir:   p.Config.Layout.OutputDir,
		ResultsDir: filepath.Join(p.Config.Layout.OutputDir, string(kind)),
		GraphPath:  graph,
	}
	if err := analysis.Run(ctx, eng, req, p.Log); err != nil {
		return false, err
	}
	return true, nil
}

// Finish reports the result of the invocation.
func (p *Pipeline) Finish(sum Summary) {
	if sum.Report != nil {
		if p.Config.Verbose {
			writeDiffs(p.Out, *sum.Report)
		}
		writeVerdict(p.Out, *sum.Report)
		return
	}
	if sum.GraphPath != "" {
		p.Log.Info(fmt.Sprintf("Output path: %s", sum.GraphPath))
	}
}
