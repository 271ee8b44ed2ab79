// Package analysis evaluates an analysis type over the facts written by the
// graph program and injects the resulting deltas into the graph.
package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"graphrun/internal/config"
	"graphrun/internal/diag"
	"graphrun/internal/inject"
	"graphrun/internal/model"
)

// Engine evaluates a rule file. On success resultsDir holds the
// delta_in_control.csv and function_final_delta.csv relations.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, rules, factsDir, resultsDir string) error
}

// Execer runs an external command; runner.Runner satisfies it.
type Execer interface {
	Exec(ctx context.Context, failure, intent string, argv []string) error
}

// NewEngine picks the engine configured for an analysis type.
func NewEngine(tool config.AnalysisTool, exec Execer, log *zap.Logger) (Engine, error) {
	switch tool.Engine {
	case config.EngineSouffle, "":
		return &Souffle{Command: tool.Command, Exec: exec}, nil
	case config.EngineMangle:
		return &Mangle{Log: log}, nil
	default:
		return nil, diag.Configf("unknown analysis engine %q", tool.Engine)
	}
}

// Request is one analysis run over a finished graph.
type Request struct {
	Type       config.AnalysisType
	Rules      string
	FactsDir   string
	ResultsDir string
	GraphPath  string
}

// Run evaluates the rules and rewrites the graph labels in place.
func Run(ctx context.Context, eng Engine, req Request, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if !model.FileExists(req.Rules) {
		return diag.Configf("Rule file %s for analysis %s does not exist", req.Rules, req.Type)
	}
	if err := os.MkdirAll(req.ResultsDir, 0755); err != nil {
		return diag.IO("Failed to create analysis output directory", err)
	}

	log.Info("Running analysis",
		zap.String("type", string(req.Type)),
		zap.String("engine", eng.Name()),
		zap.String("rules", req.Rules))
	if err := eng.Evaluate(ctx, req.Rules, req.FactsDir, req.ResultsDir); err != nil {
		return err
	}

	return inject.AnnotateFile(
		req.GraphPath,
		filepath.Join(req.ResultsDir, inject.ControlRelationFile),
		filepath.Join(req.ResultsDir, inject.FunctionRelationFile),
		log,
	)
}

// Souffle runs the external Datalog engine:
// <command> <rules> -F <facts dir> -D <results dir>
type Souffle struct {
	Command string
	Exec    Execer
}

func (s *Souffle) Name() string { return config.EngineSouffle }

func (s *Souffle) Evaluate(ctx context.Context, rules, factsDir, resultsDir string) error {
	argv := append(strings.Fields(s.Command), rules, "-F", factsDir, "-D", resultsDir)
	if err := s.Exec.Exec(ctx, "Analysis failed", "Running analysis engine", argv); err != nil {
		return fmt.Errorf("souffle: %w", err)
	}
	return nil
}
