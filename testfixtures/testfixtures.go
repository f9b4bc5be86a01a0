// Package testfixtures loads DIMACS CNF files into a trail.Trail for use in
// PROP/OPT integration tests. It is test-only plumbing, not part of the
// solver's public surface.
package testfixtures

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/dimacs"
	"github.com/rhartert/yasscp/trail"
)

// CNFLoader is the subset of trail.Trail needed to load a CNF formula.
type CNFLoader interface {
	AddVariable() int
	AddClause(lits []trail.Literal) error
}

func reader(filename string, gzipped bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if gzipped {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// LoadCNF parses the DIMACS CNF file at filename and loads its formula into
// loader, adding one trail variable per DIMACS variable.
func LoadCNF(filename string, gzipped bool, loader CNFLoader) error {
	rc, err := reader(filename, gzipped)
	if err != nil {
		return fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer rc.Close()

	b := &builder{loader: loader}
	return dimacs.ReadBuilder(rc, b)
}

// builder adapts a CNFLoader to the dimacs.Builder interface.
type builder struct {
	loader CNFLoader
}

func (b *builder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("not a CNF problem")
	}
	for i := 0; i < nVars; i++ {
		b.loader.AddVariable()
	}
	return nil
}

func (b *builder) Clause(tmpClause []int) error {
	clause := make([]trail.Literal, len(tmpClause))
	for i, l := range tmpClause {
		if l < 0 {
			clause[i] = trail.NegativeLiteral(-l - 1)
		} else {
			clause[i] = trail.PositiveLiteral(l - 1)
		}
	}
	return b.loader.AddClause(clause)
}

func (b *builder) Comment(_ string) error {
	return nil
}

// Model is a satisfying assignment, one entry per DIMACS variable.
type Model []bool

// ReadModels returns the list of models (if any) stored in a DIMACS-style
// clause file, one model per clause line (positive literal = true).
func ReadModels(filename string) ([]Model, error) {
	rc, err := reader(filename, false)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer rc.Close()

	b := &modelBuilder{}
	if err := dimacs.ReadBuilder(rc, b); err != nil {
		return nil, err
	}
	return b.models, nil
}

type modelBuilder struct {
	models []Model
}

func (b *modelBuilder) Problem(problem string, nVars int, nClauses int) error {
	return fmt.Errorf("model files should not have problem lines")
}

func (b *modelBuilder) Comment(_ string) error {
	return nil
}

func (b *modelBuilder) Clause(tmpClause []int) error {
	model := make(Model, len(tmpClause))
	for i, l := range tmpClause {
		model[i] = l > 0
	}
	b.models = append(b.models, model)
	return nil
}
