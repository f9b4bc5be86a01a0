package testfixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rhartert/yasscp/trail"
)

func writeCNF(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "instance.cnf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadCNF_AddsVariablesAndClauses(t *testing.T) {
	path := writeCNF(t, "c a trivial instance\np cnf 3 2\n1 -2 0\n2 3 0\n")

	tr := trail.New(trail.Options{})
	if err := LoadCNF(path, false, tr); err != nil {
		t.Fatalf("LoadCNF() error = %v", err)
	}

	if got := tr.NumVariables(); got != 3 {
		t.Errorf("NumVariables() = %d, want 3", got)
	}
	if got := tr.NumConstraints(); got != 2 {
		t.Errorf("NumConstraints() = %d, want 2", got)
	}
}

func TestLoadCNF_RejectsNonCNFProblem(t *testing.T) {
	path := writeCNF(t, "p wcnf 1 1\n1 0\n")

	tr := trail.New(trail.Options{})
	if err := LoadCNF(path, false, tr); err == nil {
		t.Fatalf("LoadCNF() error = nil, want non-nil")
	}
}

func TestReadModels_ParsesOneModelPerLine(t *testing.T) {
	path := writeCNF(t, "1 -2 3 0\n-1 2 -3 0\n")

	models, err := ReadModels(path)
	if err != nil {
		t.Fatalf("ReadModels() error = %v", err)
	}

	want := []Model{
		{true, false, true},
		{false, true, false},
	}
	if diff := cmp.Diff(want, models); diff != "" {
		t.Errorf("ReadModels() mismatch (-want +got):\n%s", diff)
	}
}
