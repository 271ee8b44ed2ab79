package model

import (
	"cmp"
	"fmt"
	"path/filepath"
	"strings"
)

// Sample is a catalog input discovered by the sample_<index>_* naming convention.
type Sample struct {
	Index string // Decimal index, e.g. "15"
	Path  string // Full path to the sample file
}

// CompareIndex orders decimal indexes by value without converting them, so
// indexes wider than an int still sort after shorter ones.
func CompareIndex(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// OutputName is the per-sample graph file name used by the test harness.
func (s Sample) OutputName() string {
	return GraphFileName(s.Index)
}

// Golden is the accepted output for a sample.
type Golden struct {
	Index string
	Path  string
}

// GoldenFor returns the golden location of a sample inside goldensDir.
func GoldenFor(goldensDir string, s Sample) Golden {
	return Golden{
		Index: s.Index,
		Path:  filepath.Join(goldensDir, GraphFileName(s.Index)),
	}
}

// GraphFileName is graph_<index>.txt, shared by harness outputs and goldens.
func GraphFileName(index string) string {
	return fmt.Sprintf("graph_%s.txt", index)
}

// Outcome is the result of testing one sample.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	Updated
	Untouched
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case Updated:
		return "Updated"
	case Untouched:
		return "Untouched"
	default:
		return "Unknown"
	}
}

// Icon returns the single-width marker used in listings.
func (o Outcome) Icon() string {
	switch o {
	case Passed:
		return IconPassed
	case Failed:
		return IconFailed
	case Updated:
		return IconUpdated
	default:
		return IconUntouched
	}
}
