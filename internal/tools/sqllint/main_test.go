package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintTargetsFlagsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package q\n\nconst QOne = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;\n`\n\nconst QBare = `create table t (id int);`\n")
	writeFile(t, dir, "b.go", "package q\n\nconst QTwo = `--sql 11111111-2222-4333-8444-555555555555\nselect 2;\n`\n\nconst Label = \"not sql at all\"\n")
	writeFile(t, dir, "b_test.go", "package q\n\nconst QTest = `select 3;`\n")

	violations, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lintTargets error: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("violations = %v, want 2", violations)
	}
	if violations[0].name != "QBare" || !strings.Contains(violations[0].message, "missing") {
		t.Fatalf("first violation = %v", violations[0])
	}
	if violations[1].name != "QTwo" || !strings.Contains(violations[1].message, "already used by QOne") {
		t.Fatalf("second violation = %v", violations[1])
	}
}

func TestLintTargetsRepositoryQueries(t *testing.T) {
	violations, err := lintTargets([]string{"../../sqlinline"})
	if err != nil {
		t.Fatalf("lintTargets error: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("sqlinline violations: %v", violations)
	}
}
