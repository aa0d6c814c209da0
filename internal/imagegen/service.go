package imagegen

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
	"hairstudio/internal/providers/genai"
)

const defaultMimeType = "image/png"

type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, req *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

type Options struct {
	Generator ContentGenerator
	Fetcher   Fetcher
	Model     string
	Logger    *infra.Logger
}

// Service renders hairstyles onto customer photos and refines the renders.
type Service struct {
	generator ContentGenerator
	fetcher   Fetcher
	model     string
	logger    *infra.Logger
}

func NewService(opts Options) *Service {
	return &Service{
		generator: opts.Generator,
		fetcher:   opts.Fetcher,
		model:     opts.Model,
		logger:    infra.OrDiscard(opts.Logger),
	}
}

func (r SynthesisRequest) validate() error {
	required := []struct{ field, value string }{
		{"originalImageUrl", r.OriginalImageURL},
		{"firebaseUid", r.Owner},
		{"hairstyleName", r.HairstyleName},
		{"haircolorName", r.HaircolorName},
		{"recommendedLevel", r.RecommendedLevel},
		{"currentLevel", r.CurrentLevel},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.field)
		}
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Field: strings.Join(missing, ", "), Reason: "is required"}
	}
	if r.ReferenceRequired && strings.TrimSpace(r.InspirationImageURL) == "" {
		return &domain.ValidationError{Field: "inspirationImageUrl", Reason: "is required when the reference image is selected"}
	}
	return nil
}

// Synthesize renders the requested style and color on the original photo.
func (s *Service) Synthesize(ctx context.Context, req SynthesisRequest) (*Image, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	source, err := s.fetchSource(ctx, req.OriginalImageURL)
	if err != nil {
		return nil, err
	}

	var reference *SourceImage
	if u := strings.TrimSpace(req.InspirationImageURL); u != "" {
		ref, err := s.fetchSource(ctx, u)
		switch {
		case err != nil && req.ReferenceRequired:
			return nil, fmt.Errorf("inspiration image: %w", err)
		case err != nil:
			s.logger.Warn().Err(err).Str("owner", req.Owner).Msg("imagegen: inspiration image unavailable, continuing without it")
		default:
			reference = ref
		}
	}

	parts := []genai.Part{
		genai.TextPart(BuildSynthesisInstruction(req, reference != nil)),
		genai.InlinePart(source.MIMEType, source.Data),
	}
	if reference != nil {
		parts = append(parts, genai.InlinePart(reference.MIMEType, reference.Data))
	}

	img, err := s.generate(ctx, parts)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("owner", req.Owner).Dur("took", time.Since(start)).Bool("reference", reference != nil).Msg("imagegen: synthesized")
	return img, nil
}

// Refine edits req.Base. Callers chain refinements by passing the previous
// output as the next Base.
func (s *Service) Refine(ctx context.Context, req RefineRequest) (*Image, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &domain.ValidationError{Field: "refinementText", Reason: "is required"}
	}
	if req.Base.Empty() {
		return nil, &domain.ValidationError{Field: "generatedImageUrl", Reason: "is required"}
	}
	mimeType := req.Base.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	parts := []genai.Part{
		genai.TextPart(BuildRefinementInstruction(req.Text)),
		genai.InlineBase64Part(mimeType, req.Base.Base64),
	}
	start := time.Now()
	img, err := s.generate(ctx, parts)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("owner", req.Owner).Dur("took", time.Since(start)).Msg("imagegen: refined")
	return img, nil
}

// SwitchColor re-renders base with the other proposed color.
func (s *Service) SwitchColor(ctx context.Context, owner string, base Image, color domain.ColorOption) (*Image, error) {
	return s.Refine(ctx, RefineRequest{Owner: owner, Base: base, Text: SwitchColorText(color)})
}

func (s *Service) generate(ctx context.Context, parts []genai.Part) (*Image, error) {
	req := &genai.GenerateContentRequest{
		Contents:         []genai.Content{{Role: "user", Parts: parts}},
		GenerationConfig: &genai.GenerationConfig{ResponseModalities: []string{"IMAGE"}},
	}
	resp, err := s.generator.GenerateContent(ctx, s.model, req)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	inline := resp.FirstInlineData()
	if inline == nil {
		reason := "response contained no image data"
		if text := strings.TrimSpace(resp.FirstText()); text != "" {
			reason += ": " + truncate(text, 200)
		}
		return nil, &domain.ImageGenerationError{Reason: reason}
	}
	mimeType := inline.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return &Image{Base64: inline.Data, MimeType: mimeType}, nil
}

// fetchSource downloads a photo. Client-side compression produces JPEG, so
// anything that does not declare an image type is sent as image/jpeg.
func (s *Service) fetchSource(ctx context.Context, url string) (*SourceImage, error) {
	data, contentType, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch source image: %w", err)
	}
	mimeType := "image/jpeg"
	if ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])); strings.HasPrefix(ct, "image/") {
		mimeType = ct
	}
	return &SourceImage{URL: url, Data: data, MIMEType: mimeType}, nil
}

// truncate keeps at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
