package domain

import "context"

// GalleryRepository persists generated image metadata.
type GalleryRepository interface {
	Create(ctx context.Context, item *GalleryItem) error
	ListByOwner(ctx context.Context, firebaseUID string, limit int) ([]GalleryItem, error)
}
