package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hairstudio/internal/domain"
)

type recordingExecutor struct {
	queries []string
	args    [][]any
	row     pgx.Row
	rows    pgx.Rows
	err     error
}

func (e *recordingExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	e.queries = append(e.queries, query)
	e.args = append(e.args, args)
	return pgconn.CommandTag{}, e.err
}

func (e *recordingExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	e.queries = append(e.queries, query)
	e.args = append(e.args, args)
	return e.row
}

func (e *recordingExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	e.queries = append(e.queries, query)
	e.args = append(e.args, args)
	if e.err != nil {
		return nil, e.err
	}
	return e.rows, nil
}

type timeRow struct{ at time.Time }

func (r timeRow) Scan(dest ...any) error {
	ptr, ok := dest[0].(*time.Time)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.at
	return nil
}

// sliceRows is a minimal pgx.Rows over gallery items.
type sliceRows struct {
	items  []domain.GalleryItem
	idx    int
	closed bool
}

func (r *sliceRows) Close()                                       { r.closed = true }
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) Values() ([]any, error)                       { return nil, nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }

func (r *sliceRows) Next() bool {
	if r.idx >= len(r.items) {
		return false
	}
	r.idx++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	item := r.items[r.idx-1]
	values := []any{item.ID, item.FirebaseUID, item.ImageURL, item.StoragePath, item.StyleName, item.ColorName, item.RefineText}
	for i, v := range values {
		*(dest[i].(*string)) = v.(string)
	}
	*(dest[7].(*time.Time)) = item.CreatedAt
	return nil
}

func TestGalleryCreate(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	exec := &recordingExecutor{row: timeRow{at: at}}
	repo := NewGalleryRepository(exec)

	item := &domain.GalleryItem{ID: "6f1c1c1e-0000-4000-8000-000000000001", FirebaseUID: "u1", ImageURL: "https://s/g.png", StoragePath: "gallery/u1/gen-1.png", StyleName: "bob"}
	if err := repo.Create(context.Background(), item); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !item.CreatedAt.Equal(at) {
		t.Fatalf("CreatedAt = %v, want %v", item.CreatedAt, at)
	}
	if !strings.Contains(exec.queries[0], "insert into gallery") {
		t.Fatalf("unexpected query: %s", exec.queries[0])
	}
	if got := exec.args[0][1]; got != "u1" {
		t.Fatalf("uid arg = %v", got)
	}
}

func TestGalleryCreateRequiresOwner(t *testing.T) {
	repo := NewGalleryRepository(&recordingExecutor{})
	err := repo.Create(context.Background(), &domain.GalleryItem{ID: "x"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGalleryListByOwner(t *testing.T) {
	rows := &sliceRows{items: []domain.GalleryItem{
		{ID: "b", FirebaseUID: "u1", StoragePath: "gallery/u1/gen-2.png"},
		{ID: "a", FirebaseUID: "u1", StoragePath: "gallery/u1/gen-1.png"},
	}}
	exec := &recordingExecutor{rows: rows}
	items, err := NewGalleryRepository(exec).ListByOwner(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "b" {
		t.Fatalf("items = %+v", items)
	}
	if !rows.closed {
		t.Fatal("rows not closed")
	}
	if got := exec.args[0][1]; got != 50 {
		t.Fatalf("default limit = %v, want 50", got)
	}
}

func TestEnsureSchema(t *testing.T) {
	exec := &recordingExecutor{}
	if err := EnsureSchema(context.Background(), exec); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if len(exec.queries) != 3 {
		t.Fatalf("queries = %d, want 3", len(exec.queries))
	}
	for _, q := range exec.queries {
		if !strings.HasPrefix(q, "--sql ") {
			t.Fatalf("query without marker: %s", q)
		}
	}
}
