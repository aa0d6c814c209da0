package diagnosis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"hairstudio/internal/domain"
	"hairstudio/internal/providers/genai"
)

// Fetcher downloads an uploaded asset.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// MissingKeys lists required keys without a URL, in request order.
func MissingKeys(urls map[domain.AssetKey]string) []domain.AssetKey {
	var missing []domain.AssetKey
	for _, key := range domain.RequiredKeys {
		if strings.TrimSpace(urls[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func missingKeysError(missing []domain.AssetKey) error {
	names := make([]string, len(missing))
	for i, k := range missing {
		names[i] = string(k)
	}
	return &domain.ValidationError{Field: "fileUrls", Reason: "Missing required fileUrls: " + strings.Join(names, ", ")}
}

// FetchParts downloads the five required assets concurrently and returns
// them as inline parts in RequiredKeys order. The MIME type comes from the
// key and URL, not from the response headers.
func FetchParts(ctx context.Context, fetcher Fetcher, urls map[domain.AssetKey]string) ([]genai.Part, error) {
	if missing := MissingKeys(urls); len(missing) > 0 {
		return nil, missingKeysError(missing)
	}
	parts := make([]genai.Part, len(domain.RequiredKeys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range domain.RequiredKeys {
		i, key := i, key
		url := urls[key]
		g.Go(func() error {
			data, _, err := fetcher.Fetch(gctx, url)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", key, err)
			}
			parts[i] = genai.InlinePart(domain.InferMIME(key, url), data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// BuildRequest assembles the diagnosis call from already-fetched media.
func BuildRequest(parts []genai.Part, gender, language string) *genai.GenerateContentRequest {
	userParts := make([]genai.Part, 0, len(parts)+1)
	userParts = append(userParts, genai.TextPart(UserPrompt(gender)))
	userParts = append(userParts, parts...)
	return &genai.GenerateContentRequest{
		SystemInstruction: genai.SystemText(SystemInstruction(gender, language)),
		Contents:          []genai.Content{{Role: "user", Parts: userParts}},
		GenerationConfig: &genai.GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   ResponseSchema,
		},
	}
}
