// Package catalog resolves sample indexes and ad-hoc input files to paths.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"graphrun/internal/diag"
	"graphrun/internal/model"
)

var (
	ErrInvalidIndex   = errors.New("invalid sample index")
	ErrSampleNotFound = errors.New("sample not found")
)

// sampleName finds sample_<digits>_ runs. A sample file name starts with
// exactly one such run.
var sampleName = regexp.MustCompile(`sample_(\d+)_`)

// Catalog reads the samples directory.
type Catalog struct {
	Dir string
}

func New(dir string) *Catalog {
	return &Catalog{Dir: dir}
}

// Resolve returns the samples to run. Requested indexes are looked up one by
// one; with none requested, test mode takes every sample in the directory and
// a normal run takes nothing.
func (c *Catalog) Resolve(requested []string, testMode bool) ([]model.Sample, error) {
	switch {
	case len(requested) > 0:
		return c.lookup(requested)
	case testMode:
		return c.all()
	default:
		return nil, nil
	}
}

func (c *Catalog) lookup(requested []string) ([]model.Sample, error) {
	for _, idx := range requested {
		if !isDecimal(idx) {
			return nil, diag.Config("All provided samples must be numbers", fmt.Errorf("%w %q", ErrInvalidIndex, idx))
		}
	}

	names, err := c.fileNames()
	if err != nil {
		return nil, err
	}

	samples := make([]model.Sample, 0, len(requested))
	for _, idx := range requested {
		prefix := "sample_" + idx + "_"
		found := false
		for _, name := range names {
			if strings.HasPrefix(name, prefix) {
				samples = append(samples, model.Sample{Index: idx, Path: filepath.Join(c.Dir, name)})
				found = true
				break
			}
		}
		if !found {
			return nil, diag.Config(fmt.Sprintf("Sample with index %s does not exist", idx), ErrSampleNotFound)
		}
	}
	return samples, nil
}

func (c *Catalog) all() ([]model.Sample, error) {
	names, err := c.fileNames()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	samples := make([]model.Sample, 0, len(names))
	for _, name := range names {
		matches := sampleName.FindAllStringSubmatchIndex(name, -1)
		if len(matches) != 1 {
			return nil, diag.Parse("Inconsistent sample naming",
				fmt.Errorf("%s: expected exactly one sample_<index>_ part, found %d", name, len(matches)))
		}
		if matches[0][0] != 0 {
			return nil, diag.Parse("Inconsistent sample naming",
				fmt.Errorf("%s: name must start with sample_<index>_", name))
		}
		idx := name[matches[0][2]:matches[0][3]]
		if prev, dup := seen[idx]; dup {
			return nil, diag.Parse("Inconsistent sample naming",
				fmt.Errorf("%s and %s share index %s", prev, name, idx))
		}
		seen[idx] = name
		samples = append(samples, model.Sample{Index: idx, Path: filepath.Join(c.Dir, name)})
	}
	return samples, nil
}

// fileNames lists regular files in directory order (sorted by name).
func (c *Catalog) fileNames() ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, diag.IO("Failed to read samples directory", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Inputs validates ad-hoc input files and makes them absolute. They carry no
// index and never take part in golden testing.
func Inputs(paths []string) ([]string, error) {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, diag.IO(fmt.Sprintf("Cannot resolve input %s", p), err)
		}
		if !model.FileExists(abs) {
			return nil, diag.Configf("Input file %s does not exist", abs)
		}
		resolved = append(resolved, abs)
	}
	return resolved, nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
