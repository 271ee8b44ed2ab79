package inject

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"graphrun/internal/diag"
	"graphrun/internal/model"
)

// Relation file names produced by the analysis engines.
const (
	ControlRelationFile  = "delta_in_control.csv"
	FunctionRelationFile = "function_final_delta.csv"
)

var ErrMalformedRecord = errors.New("malformed relation record")

// Entry is one (parameter, delta) pair of a subject.
type Entry struct {
	ParameterID string
	Delta       model.Delta
}

func (e Entry) String() string {
	return fmt.Sprintf("p(%s):d(%s)", e.ParameterID, e.Delta)
}

// Relation maps subject node ids to their entries. Subjects keep the order in
// which they first appear; entries keep record order.
type Relation struct {
	subjects []string
	entries  map[string][]Entry
}

// Group builds a Relation from records without reordering them.
func Group(records []model.AnalysisRecord) Relation {
	r := Relation{entries: make(map[string][]Entry)}
	for _, rec := range records {
		if _, ok := r.entries[rec.SubjectNodeID]; !ok {
			r.subjects = append(r.subjects, rec.SubjectNodeID)
		}
		r.entries[rec.SubjectNodeID] = append(r.entries[rec.SubjectNodeID], Entry{
			ParameterID: rec.ParameterID,
			Delta:       rec.Delta,
		})
	}
	return r
}

// Subjects returns the subject ids in first-appearance order.
func (r Relation) Subjects() []string {
	return slices.Clone(r.subjects)
}

// Entries returns the entries recorded for subject.
func (r Relation) Entries(subject string) ([]Entry, bool) {
	e, ok := r.entries[subject]
	return slices.Clone(e), ok
}

func (r Relation) Len() int { return len(r.subjects) }

// ParseRecords reads subject,parameter,delta rows. Any other field count is
// a parse error.
func ParseRecords(r io.Reader, name string) ([]model.AnalysisRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	var records []model.AnalysisRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, diag.Parse(fmt.Sprintf("Malformed relation %s", name), fmt.Errorf("%w: %v", ErrMalformedRecord, err))
		}
		records = append(records, model.AnalysisRecord{
			SubjectNodeID: row[0],
			ParameterID:   row[1],
			Delta:         model.ParseDelta(row[2]),
		})
	}
}

// LoadRelation reads and groups a relation file.
func LoadRelation(path string) (Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return Relation{}, diag.IO(fmt.Sprintf("Cannot read relation %s", filepath.Base(path)), err)
	}
	defer f.Close()

	records, err := ParseRecords(f, filepath.Base(path))
	if err != nil {
		return Relation{}, err
	}
	return Group(records), nil
}
