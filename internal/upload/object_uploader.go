package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
	"hairstudio/internal/storage"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectUploader writes assets to an ObjectStore under
// uploads/{owner}/{key}-{unixMillis}-{filename}.
type ObjectUploader struct {
	store        storage.ObjectStore
	logger       *infra.Logger
	maxDimension int
	now          func() time.Time
}

type ObjectUploaderOptions struct {
	Store storage.ObjectStore
	// MaxImageDimension enables compression of still images; 0 disables it.
	MaxImageDimension int
	Logger            *infra.Logger
	Now               func() time.Time
}

func NewObjectUploader(opts ObjectUploaderOptions) *ObjectUploader {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ObjectUploader{
		store:        opts.Store,
		logger:       infra.OrDiscard(opts.Logger),
		maxDimension: opts.MaxImageDimension,
		now:          now,
	}
}

func (u *ObjectUploader) Upload(ctx context.Context, asset domain.Asset, progress func(sent, total int64)) (string, error) {
	if strings.TrimSpace(asset.Owner) == "" {
		return "", &domain.ValidationError{Field: "owner", Reason: "is required"}
	}
	if len(asset.Data) == 0 {
		return "", &domain.ValidationError{Field: string(asset.Key), Reason: "file is empty"}
	}

	data := asset.Data
	filename := asset.Filename
	contentType := asset.ContentType
	if asset.Key.Kind() == domain.AssetKindImage {
		compressed, changed, err := CompressImage(data, u.maxDimension)
		if err != nil {
			u.logger.Warn().Err(err).Str("key", string(asset.Key)).Msg("upload: compression failed, sending original")
		} else if changed {
			u.logger.Debug().Str("key", string(asset.Key)).Int("before", len(data)).Int("after", len(compressed)).Msg("upload: image compressed")
			data = compressed
			filename = jpegFilename(filename)
			contentType = "image/jpeg"
		}
	}
	if contentType == "" {
		contentType = domain.InferMIME(asset.Key, filename)
	}

	key := ObjectKey(asset.Owner, asset.Key, filename, u.now())
	total := int64(len(data))
	reader := &progressReader{r: bytes.NewReader(data), total: total, report: progress}
	if err := u.store.Put(ctx, key, reader, total, contentType); err != nil {
		return "", fmt.Errorf("store %s: %w", asset.Key, err)
	}
	url, err := u.store.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve url %s: %w", asset.Key, err)
	}
	return url, nil
}

// ObjectKey builds the storage path of an uploaded asset.
func ObjectKey(owner string, key domain.AssetKey, filename string, at time.Time) string {
	name := unsafeFilenameChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	if name == "" || name == "." || name == "_" {
		name = "file"
	}
	return fmt.Sprintf("uploads/%s/%s-%d-%s", owner, key, at.UnixMilli(), name)
}

type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.report != nil {
			p.report(p.sent, p.total)
		}
	}
	return n, err
}
