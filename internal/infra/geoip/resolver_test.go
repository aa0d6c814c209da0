package geoip

import (
	"errors"
	"testing"
)

func TestOpenEmptyPathDisablesLookups(t *testing.T) {
	r, err := Open("  ")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if r != nil {
		t.Fatalf("expected nil resolver for empty path")
	}
	if got := r.Lookup("203.0.113.9"); got != "" {
		t.Fatalf("Lookup on nil resolver = %q, want empty", got)
	}
	if _, err := r.CountryCode("203.0.113.9"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil resolver: %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}
