package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"graphrun/internal/diag"
	"graphrun/internal/model"
)

// ToolsFileName is looked up in the project root when --config is not given.
const ToolsFileName = "graphrun.hcl"

// Analysis engines.
const (
	EngineSouffle = "souffle"
	EngineMangle  = "mangle"
)

// Tools names the external collaborators.
type Tools struct {
	Compiler   string
	Runtime    string
	EntryPoint string
	Analyses   map[AnalysisType]AnalysisTool
}

// AnalysisTool describes how one analysis type is evaluated.
type AnalysisTool struct {
	Engine  string // souffle or mangle
	Command string // executable for the souffle engine
	Rules   string // rule file path
}

// DefaultTools matches the original TypeScript toolchain.
func DefaultTools() Tools {
	return Tools{
		Compiler:   "tsc",
		Runtime:    "node",
		EntryPoint: "main.js",
		Analyses:   map[AnalysisType]AnalysisTool{},
	}
}

// Analysis returns the tool for kind with defaults filled in. Relative rule
// paths are resolved against the project root.
func (t Tools) Analysis(kind AnalysisType, layout model.Layout) AnalysisTool {
	at := t.Analyses[kind]
	if at.Engine == "" {
		at.Engine = EngineSouffle
	}
	if at.Command == "" {
		at.Command = "souffle"
	}
	if at.Rules == "" {
		ext := ".dl"
		if at.Engine == EngineMangle {
			ext = ".mg"
		}
		at.Rules = filepath.Join(layout.AnalysisDir, string(kind)+ext)
	} else if !filepath.IsAbs(at.Rules) {
		at.Rules = filepath.Join(layout.Root, at.Rules)
	}
	return at
}

// fileRoot is the top-level shape of graphrun.hcl.
type fileRoot struct {
	Build    *buildBlock      `hcl:"build,block"`
	Run      *runBlock        `hcl:"run,block"`
	Analyses []*analysisBlock `hcl:"analysis,block"`
	Remain   hcl.Body         `hcl:",remain"`
}

type buildBlock struct {
	Compiler string `hcl:"compiler,optional"`
}

type runBlock struct {
	Runtime    string `hcl:"runtime,optional"`
	EntryPoint string `hcl:"entry_point,optional"`
}

type analysisBlock struct {
	Type    string `hcl:"type,label"`
	Engine  string `hcl:"engine,optional"`
	Command string `hcl:"command,optional"`
	Rules   string `hcl:"rules,optional"`
}

// LoadTools reads the tool configuration. A missing file yields the defaults
// unless required is set (the path was given explicitly).
func LoadTools(path string, layout model.Layout, required bool) (Tools, error) {
	tools := DefaultTools()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return tools, nil
		}
		return Tools{}, diag.Config(fmt.Sprintf("Cannot read tool config %s", path), err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Tools{}, diag.Config(fmt.Sprintf("Failed to parse tool config %s", path), diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(layout), &root)
	if diags.HasErrors() {
		return Tools{}, diag.Config(fmt.Sprintf("Failed to decode tool config %s", path), diags)
	}

	if root.Build != nil && root.Build.Compiler != "" {
		tools.Compiler = root.Build.Compiler
	}
	if root.Run != nil {
		if root.Run.Runtime != "" {
			tools.Runtime = root.Run.Runtime
		}
		if root.Run.EntryPoint != "" {
			tools.EntryPoint = root.Run.EntryPoint
		}
	}
	for _, a := range root.Analyses {
		kind := AnalysisType(a.Type)
		switch a.Engine {
		case "", EngineSouffle, EngineMangle:
		default:
			return Tools{}, diag.Configf("analysis %q: unknown engine %q", a.Type, a.Engine)
		}
		tools.Analyses[kind] = AnalysisTool{Engine: a.Engine, Command: a.Command, Rules: a.Rules}
	}
	return tools, nil
}

// evalContext exposes the project layout to expressions such as
// "${dirs.analysis}/array_size.dl".
func evalContext(layout model.Layout) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"root": cty.StringVal(layout.Root),
			"dirs": cty.ObjectVal(map[string]cty.Value{
				"build":    cty.StringVal(layout.BuildDir),
				"output":   cty.StringVal(layout.OutputDir),
				"sources":  cty.StringVal(layout.SourcesDir),
				"analysis": cty.StringVal(layout.AnalysisDir),
				"samples":  cty.StringVal(layout.SamplesDir),
				"goldens":  cty.StringVal(layout.GoldensDir),
			}),
		},
	}
}
