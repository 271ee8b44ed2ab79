package model

import "path/filepath"

// Layout is the fixed directory layout under the project root.
type Layout struct {
	Root        string
	BuildDir    string
	OutputDir   string
	SourcesDir  string
	AnalysisDir string
	TestsDir    string
	SamplesDir  string
	GoldensDir  string
}

// NewLayout derives every directory from root.
func NewLayout(root string) Layout {
	tests := filepath.Join(root, "tests")
	return Layout{
		Root:        root,
		BuildDir:    filepath.Join(root, "build"),
		OutputDir:   filepath.Join(root, "output"),
		SourcesDir:  filepath.Join(root, "sources"),
		AnalysisDir: filepath.Join(root, "analysis"),
		TestsDir:    tests,
		SamplesDir:  filepath.Join(tests, "samples"),
		GoldensDir:  filepath.Join(tests, "goldens"),
	}
}
