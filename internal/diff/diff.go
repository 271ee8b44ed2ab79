// Package diff compares graph outputs with their goldens.
package diff

import (
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// Differs reports whether the two line sequences differ. It stops at the
// first mismatching line.
func Differs(a, b []string) bool {
	return !slices.Equal(a, b)
}

// Unified renders a unified diff from a (golden) to b (output) with three
// lines of context. It returns "" when the inputs are equal.
func Unified(a, b []string, fromName, toName string) (string, error) {
	if !Differs(a, b) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withEOL(a),
		B:        withEOL(b),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}

// Stats counts added and removed lines of a unified diff.
type Stats struct {
	Hunks   int
	Added   int
	Removed int
}

// Stat parses a unified diff produced by Unified.
func Stat(unified string) (Stats, error) {
	var st Stats
	if unified == "" {
		return st, nil
	}
	fd, err := sgdiff.ParseFileDiff([]byte(unified))
	if err != nil {
		return st, err
	}
	for _, h := range fd.Hunks {
		st.Hunks++
		for _, line := range strings.Split(string(h.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				st.Added++
			case strings.HasPrefix(line, "-"):
				st.Removed++
			}
		}
	}
	return st, nil
}

// withEOL terminates every line, as difflib expects.
func withEOL(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
