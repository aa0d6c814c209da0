package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
	"hairstudio/internal/providers/genai"
)

// ContentGenerator is the model call used by the service.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, req *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error)
}

type Request struct {
	FileURLs map[domain.AssetKey]string
	Owner    string
	Gender   string
	Language string
}

// Response is the validated model output, returned as-is by the HTTP API.
type Response struct {
	Result   domain.DiagnosisResult `json:"result"`
	Proposal domain.Proposal        `json:"proposal"`
}

type Options struct {
	Generator ContentGenerator
	Fetcher   Fetcher
	Model     string
	Logger    *infra.Logger
}

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

// Diagnose fetches the required media, asks the model for a structured
// diagnosis and validates it against ResponseSchema.
func (s *Service) Diagnose(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Gender) == "" {
		return nil, &domain.ValidationError{Field: "gender", Reason: "is required"}
	}
	start := time.Now()
	parts, err := FetchParts(ctx, s.fetcher, req.FileURLs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("owner", req.Owner).Dur("fetch", time.Since(start)).Msg("diagnosis: media fetched")

	resp, err := s.generator.GenerateContent(ctx, s.model, BuildRequest(parts, req.Gender, req.Language))
	if err != nil {
		return nil, fmt.Errorf("diagnosis request: %w", err)
	}
	out, err := Validate([]byte(resp.FirstText()))
	if err != nil {
		s.logger.Warn().Err(err).Str("owner", req.Owner).Msg("diagnosis: response rejected")
		return nil, err
	}
	s.logger.Info().Str("owner", req.Owner).Dur("took", time.Since(start)).Msg("diagnosis: completed")
	return out, nil
}

// Validate parses raw model text and checks it against ResponseSchema. The
// first failing path is reported as *domain.SchemaValidationError.
func Validate(raw []byte) (*Response, error) {
	raw = trimFences(raw)
	if len(raw) == 0 {
		return nil, &domain.SchemaValidationError{Reason: "response contains no JSON text"}
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &domain.SchemaValidationError{Reason: "invalid JSON: " + err.Error()}
	}
	if err := genai.Validate(ResponseSchema, generic); err != nil {
		return nil, err
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &domain.SchemaValidationError{Reason: "decode: " + err.Error()}
	}
	return &out, nil
}

func trimFences(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte("```")) {
		return raw
	}
	raw = bytes.TrimPrefix(raw, []byte("```"))
	raw = bytes.TrimPrefix(raw, []byte("json"))
	raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
	return bytes.TrimSpace(raw)
}
