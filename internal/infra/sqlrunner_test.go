package infra

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	query := "--sql 0b5c5a86-3a0e-4b4e-9d8f-1f2a3b4c5d6e\nselect 1;\n"
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "0b5c5a86-3a0e-4b4e-9d8f-1f2a3b4c5d6e" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(body) != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejectsUnmarkedQuery(t *testing.T) {
	if _, _, err := extractMarker("select 1;"); !errors.Is(err, errMissingMarker) {
		t.Fatalf("expected errMissingMarker, got %v", err)
	}
	if _, _, err := extractMarker("   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("load: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows should match")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unrelated error should not match")
	}
}
