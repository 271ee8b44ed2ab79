// Package config turns parsed flags into the immutable PipelineConfig and
// loads the optional tool configuration file.
package config

import (
	"slices"

	"graphrun/internal/diag"
	"graphrun/internal/model"
)

// DefaultOutput is the graph file name used when --output is not given.
const DefaultOutput = "graph.txt"

// AnalysisType selects the analysis run after a normal graph build.
type AnalysisType string

const (
	AnalysisNone      AnalysisType = ""
	AnalysisArraySize AnalysisType = "array_size"
)

// AnalysisTypes lists the accepted --analysis values.
func AnalysisTypes() []AnalysisType {
	return []AnalysisType{AnalysisArraySize}
}

// Flags is the raw command line, before any defaults are derived.
type Flags struct {
	Root          string
	ConfigPath    string
	NoBuild       bool
	Samples       []string
	Inputs        []string
	Output        string
	Analysis      string
	Verbose       bool
	Clean         bool
	Test          bool
	UpdateGoldens bool
	Browse        bool
}

// PipelineConfig is the fully resolved configuration. It is computed once by
// Resolve and passed by value.
type PipelineConfig struct {
	Build         bool
	Samples       []string
	Inputs        []string
	Output        string
	Analysis      AnalysisType
	Verbose       bool
	Clean         bool
	Test          bool
	UpdateGoldens bool
	Browse        bool
	ToolsPath     string
	Layout        model.Layout
}

// Resolve applies the cascading defaults (update-goldens implies test, test
// implies clean) and validates the flag combination.
func Resolve(f Flags) (PipelineConfig, error) {
	test := f.Test || f.UpdateGoldens
	clean := f.Clean || test

	analysis := AnalysisType(f.Analysis)
	if analysis != AnalysisNone && !slices.Contains(AnalysisTypes(), analysis) {
		return PipelineConfig{}, diag.Configf("Unknown analysis type %q (choose from %v)", f.Analysis, AnalysisTypes())
	}

	if f.Browse && !test {
		return PipelineConfig{}, diag.Configf("--browse is only available together with --test")
	}

	output := f.Output
	if output == "" {
		output = DefaultOutput
	}

	root := f.Root
	if root == "" {
		root = "."
	}

	return PipelineConfig{
		Build:         !f.NoBuild,
		Samples:       slices.Clone(f.Samples),
		Inputs:        slices.Clone(f.Inputs),
		Output:        output,
		Analysis:      analysis,
		Verbose:       f.Verbose,
		Clean:         clean,
		Test:          test,
		UpdateGoldens: f.UpdateGoldens,
		Browse:        f.Browse,
		ToolsPath:     f.ConfigPath,
		Layout:        model.NewLayout(root),
	}, nil
}
