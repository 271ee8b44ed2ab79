package analysis

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	manalysis "github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"graphrun/internal/config"
	"graphrun/internal/diag"
	"graphrun/internal/inject"
)

// factsExt marks fact files written by the graph program (vertices.facts, ...).
const factsExt = ".facts"

// Mangle evaluates a Mangle (.mg) rule file in-process. Every <pred>.facts
// file whose predicate is declared in the rules is loaded as EDB facts.
type Mangle struct {
	Log *zap.Logger
}

func (m *Mangle) Name() string { return config.EngineMangle }

func (m *Mangle) Evaluate(ctx context.Context, rules, factsDir, resultsDir string) error {
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}

	src, err := os.ReadFile(rules)
	if err != nil {
		return diag.IO("Cannot read rule file", err)
	}
	unit, err := parse.Unit(bytes.NewReader(src))
	if err != nil {
		return diag.Parse(fmt.Sprintf("Invalid rule file %s", rules), err)
	}
	info, err := manalysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return diag.Parse(fmt.Sprintf("Invalid rule file %s", rules), err)
	}

	preds := make(map[string]ast.PredicateSym, len(info.Decls))
	for sym := range info.Decls {
		preds[sym.Symbol] = sym
	}

	store := factstore.NewSimpleInMemoryStore()
	loaded, err := loadFacts(factsDir, preds, store, log)
	if err != nil {
		return err
	}
	log.Debug("Loaded facts", zap.Int("facts", loaded))

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := mengine.EvalProgramWithStats(info, store); err != nil {
		return diag.Process("Analysis failed", -1, err)
	}

	for _, file := range []string{inject.ControlRelationFile, inject.FunctionRelationFile} {
		name := strings.TrimSuffix(file, filepath.Ext(file))
		sym, ok := preds[name]
		if !ok {
			return diag.Parse(fmt.Sprintf("Invalid rule file %s", rules), fmt.Errorf("predicate %s is not defined", name))
		}
		if err := writeRelation(filepath.Join(resultsDir, file), sym, store); err != nil {
			return err
		}
	}
	return nil
}

func loadFacts(dir string, preds map[string]ast.PredicateSym, store factstore.FactStore, log *zap.Logger) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+factsExt))
	if err != nil {
		return 0, diag.IO("Cannot list fact files", err)
	}

	count := 0
	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), factsExt)
		sym, ok := preds[name]
		if !ok {
			log.Debug("Ignoring facts for undeclared predicate", zap.String("file", path))
			continue
		}

		rows, err := readCSV(path, sym.Arity)
		if err != nil {
			return count, err
		}
		for _, row := range rows {
			args := make([]ast.BaseTerm, len(row))
			for i, field := range row {
				args[i] = constant(field)
			}
			store.Add(ast.Atom{Predicate: sym, Args: args})
			count++
		}
	}
	return count, nil
}

func readCSV(path string, arity int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.IO("Cannot read fact file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = arity
	rows, err := r.ReadAll()
	if err != nil {
		return nil, diag.Parse(fmt.Sprintf("Malformed fact file %s", filepath.Base(path)), err)
	}
	return rows, nil
}

// constant maps a CSV field to a Mangle constant: integers become numbers,
// anything else a string.
func constant(field string) ast.Constant {
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		return ast.Number(n)
	}
	return ast.String(field)
}

func constantText(c ast.Constant) string {
	switch c.Type {
	case ast.NumberType:
		return strconv.FormatInt(c.NumValue, 10)
	case ast.StringType, ast.NameType:
		return c.Symbol
	default:
		return c.String()
	}
}

// writeRelation dumps a derived predicate as CSV. Rows are sorted since the
// fact store has no stable order.
func writeRelation(path string, sym ast.PredicateSym, store factstore.FactStore) error {
	if sym.Arity != 3 {
		return diag.Parse("Invalid rule file", fmt.Errorf("predicate %s must have arity 3, has %d", sym.Symbol, sym.Arity))
	}

	var rows [][]string
	err := store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
		row := make([]string, len(a.Args))
		for i, arg := range a.Args {
			c, ok := arg.(ast.Constant)
			if !ok {
				return fmt.Errorf("%s: non-constant argument %v", sym.Symbol, arg)
			}
			row[i] = constantText(c)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return diag.Process("Analysis failed", -1, err)
	}
	slices.SortFunc(rows, func(a, b []string) int { return slices.Compare(a, b) })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return diag.IO("Cannot encode relation", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return diag.IO(fmt.Sprintf("Cannot write relation %s", filepath.Base(path)), err)
	}
	return nil
}
