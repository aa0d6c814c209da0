package repo

import (
	"context"
	"errors"
	"strings"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
	"hairstudio/internal/sqlinline"
)

// GalleryRepositoryPG implements domain.GalleryRepository using PostgreSQL.
type GalleryRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGalleryRepository constructs a new gallery repository instance.
func NewGalleryRepository(sql infra.SQLExecutor) *GalleryRepositoryPG {
	return &GalleryRepositoryPG{sql: sql}
}

// EnsureSchema creates the gallery and integration token tables when missing.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	for _, q := range []string{
		sqlinline.QCreateGalleryTable,
		sqlinline.QCreateGalleryOwnerIndex,
		sqlinline.QCreateIntegrationTokensTable,
	} {
		if _, err := sql.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts item and fills in CreatedAt.
func (r *GalleryRepositoryPG) Create(ctx context.Context, item *domain.GalleryItem) error {
	if item == nil {
		return errors.New("gallery item is required")
	}
	if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.FirebaseUID) == "" {
		return &domain.ValidationError{Field: "gallery", Reason: "id and firebaseUid are required"}
	}
	return r.sql.QueryRow(ctx, sqlinline.QInsertGalleryItem,
		item.ID,
		item.FirebaseUID,
		item.ImageURL,
		item.StoragePath,
		item.StyleName,
		item.ColorName,
		item.RefineText,
	).Scan(&item.CreatedAt)
}

// ListByOwner returns the newest items first.
func (r *GalleryRepositoryPG) ListByOwner(ctx context.Context, firebaseUID string, limit int) ([]domain.GalleryItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListGalleryByOwner, firebaseUID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.GalleryItem
	for rows.Next() {
		var item domain.GalleryItem
		if err := rows.Scan(&item.ID, &item.FirebaseUID, &item.ImageURL, &item.StoragePath, &item.StyleName, &item.ColorName, &item.RefineText, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.GalleryRepository = (*GalleryRepositoryPG)(nil)
