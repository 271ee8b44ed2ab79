// Package inject merges analysis relations into the node labels of a graph
// artifact.
package inject

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"graphrun/internal/diag"
	"graphrun/internal/model"
)

// nodeLine matches node declarations: <id> [ label="<label>" shape="<shape>" ]
var nodeLine = regexp.MustCompile(`^\s*(\d+) \[ label="(.+)" shape="(.+)" \]`)

// labelBreak is the escaped newline understood by the graph renderer.
const labelBreak = `\n`

const (
	finalSeparator = "--------"
	finalHeading   = "final delta"
)

// ParseNode decodes a node declaration line. Lines that do not match, or
// whose id does not fit an int, are not nodes.
func ParseNode(line string) (model.GraphNode, bool) {
	m := nodeLine.FindStringSubmatch(line)
	if m == nil {
		return model.GraphNode{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return model.GraphNode{}, false
	}
	return model.GraphNode{ID: id, Label: m[2], Shape: m[3]}, true
}

// Block renders the annotation for subject: its control entries, then the
// final deltas when the function relation has the same subject.
func Block(subject string, control, function Relation) []string {
	var block []string
	entries, _ := control.Entries(subject)
	for _, e := range entries {
		block = append(block, e.String())
	}
	if final, ok := function.Entries(subject); ok {
		block = append(block, finalSeparator, finalHeading)
		for _, e := range final {
			block = append(block, e.String())
		}
	}
	return block
}

// Result is the rewritten graph plus what happened to each subject.
type Result struct {
	Lines     []string
	Annotated []string // subjects whose node was found
	Skipped   []string // subjects with no node in the graph
}

// Annotate appends each control subject's block to the label of the first
// node line carrying that id. Later lines with the same id are left alone.
// The input slice is not modified.
func Annotate(lines []string, control, function Relation) Result {
	first := make(map[int]int)
	for i, l := range lines {
		n, ok := ParseNode(l)
		if !ok {
			continue
		}
		if _, seen := first[n.ID]; !seen {
			first[n.ID] = i
		}
	}

	res := Result{Lines: slices.Clone(lines)}
	for _, subject := range control.Subjects() {
		id, err := strconv.Atoi(subject)
		idx, found := first[id]
		if err != nil || !found {
			res.Skipped = append(res.Skipped, subject)
			continue
		}
		res.Lines[idx] = appendToLabel(res.Lines[idx], Block(subject, control, function))
		res.Annotated = append(res.Annotated, subject)
	}
	return res
}

func appendToLabel(line string, block []string) string {
	loc := nodeLine.FindStringSubmatchIndex(line)
	labelEnd := loc[5]
	return line[:labelEnd] + labelBreak + strings.Join(block, labelBreak) + line[labelEnd:]
}

// AnnotateFile rewrites graphPath in place with the two relations.
func AnnotateFile(graphPath, controlPath, functionPath string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	control, err := LoadRelation(controlPath)
	if err != nil {
		return err
	}
	function, err := LoadRelation(functionPath)
	if err != nil {
		return err
	}

	lines, err := model.ReadLines(graphPath)
	if err != nil {
		return diag.IO(fmt.Sprintf("Cannot read graph %s", graphPath), err)
	}

	res := Annotate(lines, control, function)
	for _, s := range res.Skipped {
		log.Debug("Relation subject not in graph", zap.String("subject", s))
	}

	if err := model.WriteLines(graphPath, res.Lines); err != nil {
		return diag.IO(fmt.Sprintf("Cannot write graph %s", graphPath), err)
	}
	log.Info("Injected analysis results",
		zap.String("graph", graphPath),
		zap.Int("annotated", len(res.Annotated)),
		zap.Int("skipped", len(res.Skipped)))
	return nil
}
