package gallery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"hairstudio/internal/domain"
	"hairstudio/internal/imagegen"
	"hairstudio/internal/infra"
	"hairstudio/internal/storage"
	"hairstudio/pkg/zip"
)

const (
	defaultListLimit = 50
	exportLimit      = 200
)

// SaveRequest is an explicit save of the current generated image.
type SaveRequest struct {
	Owner      string
	Image      imagegen.Image
	StyleName  string
	ColorName  string
	RefineText string
}

type Options struct {
	Store  storage.ObjectStore
	Repo   domain.GalleryRepository
	Logger *infra.Logger
	Now    func() time.Time
}

// Service persists generated images and their metadata.
type Service struct {
	store  storage.ObjectStore
	repo   domain.GalleryRepository
	logger *infra.Logger
	now    func() time.Time
}

func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  opts.Store,
		repo:   opts.Repo,
		logger: infra.OrDiscard(opts.Logger),
		now:    now,
	}
}

// StoragePath is gallery/{uid}/gen-{unixMillis}.{ext}.
func StoragePath(owner string, at time.Time, ext string) string {
	return fmt.Sprintf("gallery/%s/gen-%d.%s", owner, at.UnixMilli(), ext)
}

// Save writes the image to object storage and records its metadata row.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*domain.GalleryItem, error) {
	owner := strings.TrimSpace(req.Owner)
	if owner == "" || strings.ContainsAny(owner, "/\\") {
		return nil, &domain.ValidationError{Field: "firebaseUid", Reason: "is required"}
	}
	if req.Image.Empty() {
		return nil, &domain.ValidationError{Field: "image", Reason: "is required"}
	}
	data, err := req.Image.Bytes()
	if err != nil {
		return nil, &domain.ValidationError{Field: "image", Reason: err.Error()}
	}

	key := StoragePath(owner, s.now(), req.Image.Ext())
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), req.Image.MimeType); err != nil {
		return nil, fmt.Errorf("store gallery image: %w", err)
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("gallery image url: %w", err)
	}

	item := &domain.GalleryItem{
		ID:          uuid.NewString(),
		FirebaseUID: owner,
		ImageURL:    url,
		StoragePath: key,
		StyleName:   req.StyleName,
		ColorName:   req.ColorName,
		RefineText:  strings.TrimSpace(req.RefineText),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", key).Msg("gallery: orphaned object not removed")
		}
		return nil, fmt.Errorf("record gallery item: %w", err)
	}
	s.logger.Info().Str("owner", owner).Str("id", item.ID).Str("path", key).Msg("gallery: saved")
	return item, nil
}

// List returns the owner's items, newest first, with fresh URLs.
func (s *Service) List(ctx context.Context, owner string, limit int) ([]domain.GalleryItem, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, &domain.ValidationError{Field: "firebaseUid", Reason: "is required"}
	}
	if limit <= 0 || limit > exportLimit {
		limit = defaultListLimit
	}
	items, err := s.repo.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if url, err := s.store.URL(ctx, items[i].StoragePath); err == nil {
			items[i].ImageURL = url
		}
	}
	return items, nil
}

// Export streams a zip of the owner's images into w and returns how many
// were included. Objects missing from storage are skipped.
func (s *Service) Export(ctx context.Context, owner string, w io.Writer) (int, error) {
	if strings.TrimSpace(owner) == "" {
		return 0, &domain.ValidationError{Field: "firebaseUid", Reason: "is required"}
	}
	items, err := s.repo.ListByOwner(ctx, owner, exportLimit)
	if err != nil {
		return 0, err
	}
	assets := make([]zip.Asset, 0, len(items))
	for _, item := range items {
		data, mime, err := s.store.Get(ctx, item.StoragePath)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", item.StoragePath).Msg("gallery: export skipped missing object")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: path.Base(item.StoragePath),
			MIME:     mime,
			Modified: item.CreatedAt,
			Data:     data,
		})
	}
	if err := zip.Write(w, assets); err != nil {
		return 0, err
	}
	return len(assets), nil
}
