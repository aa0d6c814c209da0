package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"hairstudio/internal/domain"
	"hairstudio/internal/providers/genai"
)

func loadFixture(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile("testdata/response.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

func drop(t *testing.T, v map[string]any, path ...string) []byte {
	t.Helper()
	node := v
	for _, p := range path[:len(path)-1] {
		node = node[p].(map[string]any)
	}
	delete(node, path[len(path)-1])
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestValidateFixture(t *testing.T) {
	data, err := os.ReadFile("testdata/response.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	resp, err := Validate(data)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if resp.Result.HairCondition.CurrentLevel != "about level 7" {
		t.Fatalf("currentLevel = %q", resp.Result.HairCondition.CurrentLevel)
	}
	if resp.Proposal.Haircolors.Color2.RecommendedLevel != "level 12" {
		t.Fatalf("color2 level = %q", resp.Proposal.Haircolors.Color2.RecommendedLevel)
	}
	if len(resp.Proposal.Fashion.RecommendedItems) != 2 {
		t.Fatalf("items = %v", resp.Proposal.Fashion.RecommendedItems)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		path []string
		want string
	}{
		{name: "current level", path: []string{"result", "hairCondition", "currentLevel"}, want: "result.hairCondition.currentLevel"},
		{name: "color2 recommended level", path: []string{"proposal", "haircolors", "color2", "recommendedLevel"}, want: "proposal.haircolors.color2.recommendedLevel"},
		{name: "best color", path: []string{"proposal", "bestColors", "c3"}, want: "proposal.bestColors.c3"},
		{name: "comment", path: []string{"proposal", "comment"}, want: "proposal.comment"},
		{name: "whole result", path: []string{"result"}, want: "result"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := drop(t, loadFixture(t), tc.path...)
			_, err := Validate(raw)
			var sv *domain.SchemaValidationError
			if !errors.As(err, &sv) {
				t.Fatalf("expected SchemaValidationError, got %v", err)
			}
			if sv.Path != tc.want {
				t.Fatalf("Path = %q, want %q", sv.Path, tc.want)
			}
		})
	}
}

func TestValidateRejectsEmptyFashionList(t *testing.T) {
	v := loadFixture(t)
	v["proposal"].(map[string]any)["fashion"].(map[string]any)["recommendedStyles"] = []any{}
	raw, _ := json.Marshal(v)
	_, err := Validate(raw)
	var sv *domain.SchemaValidationError
	if !errors.As(err, &sv) || sv.Path != "proposal.fashion.recommendedStyles" {
		t.Fatalf("expected recommendedStyles failure, got %v", err)
	}
}

func TestValidateToleratesFences(t *testing.T) {
	data, _ := os.ReadFile("testdata/response.json")
	fenced := append([]byte("```json\n"), data...)
	fenced = append(fenced, []byte("\n```")...)
	if _, err := Validate(fenced); err != nil {
		t.Fatalf("Validate fenced error: %v", err)
	}
	if _, err := Validate([]byte("  ")); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := Validate([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if url == f.fail {
		return nil, "", errors.New("404")
	}
	return []byte(url), "application/octet-stream", nil
}

func fileURLs() map[domain.AssetKey]string {
	return map[domain.AssetKey]string{
		domain.KeyFrontPhoto: "https://s/front.png",
		domain.KeySidePhoto:  "https://s/side.jpeg?sig=1",
		domain.KeyBackPhoto:  "https://s/back",
		domain.KeyFrontVideo: "https://s/front.mp4?token=x",
		domain.KeyBackVideo:  "https://s/back.mov",
	}
}

func TestFetchPartsOrderAndMIME(t *testing.T) {
	f := &fakeFetcher{}
	parts, err := FetchParts(context.Background(), f, fileURLs())
	if err != nil {
		t.Fatalf("FetchParts error: %v", err)
	}
	want := []string{"image/png", "image/jpeg", "image/jpeg", "video/mp4", "video/quicktime"}
	if len(parts) != len(want) {
		t.Fatalf("parts = %d", len(parts))
	}
	for i, p := range parts {
		if p.InlineData == nil || p.InlineData.MimeType != want[i] {
			t.Fatalf("part %d mime = %+v, want %s", i, p.InlineData, want[i])
		}
	}
	if len(f.fetched) != 5 {
		t.Fatalf("fetched = %v", f.fetched)
	}
}

func TestFetchPartsMissingKeys(t *testing.T) {
	urls := fileURLs()
	delete(urls, domain.KeySidePhoto)
	delete(urls, domain.KeyBackVideo)
	_, err := FetchParts(context.Background(), &fakeFetcher{}, urls)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Reason != "Missing required fileUrls: item-side-photo, item-back-video" {
		t.Fatalf("Reason = %q", ve.Reason)
	}
}

func TestFetchPartsPropagatesFetchError(t *testing.T) {
	f := &fakeFetcher{fail: "https://s/back"}
	if _, err := FetchParts(context.Background(), f, fileURLs()); err == nil || !strings.Contains(err.Error(), "item-back-photo") {
		t.Fatalf("expected fetch error naming key, got %v", err)
	}
}

func TestBuildRequest(t *testing.T) {
	req := BuildRequest([]genai.Part{genai.InlinePart("image/png", []byte("x"))}, "female", "ja")
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("generation config = %+v", req.GenerationConfig)
	}
	if req.GenerationConfig.ResponseSchema != ResponseSchema {
		t.Fatal("request must carry the validation schema")
	}
	parts := req.Contents[0].Parts
	if len(parts) != 2 || !strings.Contains(parts[0].Text, "female") {
		t.Fatalf("parts = %+v", parts)
	}
	sys := req.SystemInstruction.Parts[0].Text
	for _, want := range []string{"Level 4-7", "Level 8-10", "Level 11-13", "Level 14-15", TrendSourceHotPepper, TrendSourceOzmall, "Japanese"} {
		if !strings.Contains(sys, want) {
			t.Fatalf("system instruction missing %q", want)
		}
	}
	if en := SystemInstruction("male", "en"); !strings.Contains(en, "Write every value in English") {
		t.Fatal("english instruction missing language line")
	}
}

type fakeGenerator struct {
	text  string
	model string
	req   *genai.GenerateContentRequest
	err   error
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, model string, req *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	g.model = model
	g.req = req
	if g.err != nil {
		return nil, g.err
	}
	return &genai.GenerateContentResponse{Candidates: []genai.Candidate{{Content: genai.Content{Parts: []genai.Part{{Text: g.text}}}}}}, nil
}

func TestServiceDiagnose(t *testing.T) {
	data, _ := os.ReadFile("testdata/response.json")
	gen := &fakeGenerator{text: string(data)}
	svc := NewService(Options{Generator: gen, Fetcher: &fakeFetcher{}, Model: "diag-model"})

	resp, err := svc.Diagnose(context.Background(), Request{FileURLs: fileURLs(), Owner: "u1", Gender: "female", Language: "en"})
	if err != nil {
		t.Fatalf("Diagnose error: %v", err)
	}
	if resp.Proposal.Hairstyles.Style1.Name != "layered medium" {
		t.Fatalf("style1 = %q", resp.Proposal.Hairstyles.Style1.Name)
	}
	if gen.model != "diag-model" {
		t.Fatalf("model = %q", gen.model)
	}
	if got := len(gen.req.Contents[0].Parts); got != 6 {
		t.Fatalf("parts = %d, want prompt + 5 media", got)
	}
}

func TestServiceDiagnoseRejectsInvalidResponse(t *testing.T) {
	gen := &fakeGenerator{text: `{"result":{},"proposal":{}}`}
	svc := NewService(Options{Generator: gen, Fetcher: &fakeFetcher{}})
	_, err := svc.Diagnose(context.Background(), Request{FileURLs: fileURLs(), Gender: "male"})
	var sv *domain.SchemaValidationError
	if !errors.As(err, &sv) || sv.Path != "result.face" {
		t.Fatalf("expected result.face failure, got %v", err)
	}
}

func TestServiceDiagnoseRequiresGender(t *testing.T) {
	svc := NewService(Options{Generator: &fakeGenerator{}, Fetcher: &fakeFetcher{}})
	var ve *domain.ValidationError
	if _, err := svc.Diagnose(context.Background(), Request{FileURLs: fileURLs()}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
