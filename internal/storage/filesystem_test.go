package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"hairstudio/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()
	key := "uploads/u1/item-front-photo-1700000000000-my photo.png"
	if err := store.Put(ctx, key, bytes.NewReader([]byte("png-bytes")), 9, "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	data, contentType, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("data = %q", data)
	}
	if contentType != "image/png" {
		t.Fatalf("content type = %q, want image/png", contentType)
	}

	u, err := store.URL(ctx, key)
	if err != nil {
		t.Fatalf("URL error: %v", err)
	}
	want := "http://localhost:8080/static/uploads/u1/item-front-photo-1700000000000-my%20photo.png"
	if u != want {
		t.Fatalf("URL = %q, want %q", u, want)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "gallery/u1/gen-1.png", want: "gallery/u1/gen-1.png"},
		{in: "/gallery//u1/./gen-1.png", want: "gallery/u1/gen-1.png"},
		{in: `uploads\u1\a.jpg`, want: "uploads/u1/a.jpg"},
		{in: "../etc/passwd", wantErr: true},
		{in: "uploads/../../x", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadAllLimited(t *testing.T) {
	if _, err := ReadAllLimited(strings.NewReader("12345"), 4); err == nil {
		t.Fatal("expected size error")
	}
	data, err := ReadAllLimited(strings.NewReader("1234"), 4)
	if err != nil || string(data) != "1234" {
		t.Fatalf("ReadAllLimited = %q, %v", data, err)
	}
}
