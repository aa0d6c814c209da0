package genai

import (
	"encoding/base64"
	"strings"
)

// Wire types for the generateContent endpoint. Only the fields the service
// sends or reads are modelled.

type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type GenerationConfig struct {
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     *Schema  `json:"responseSchema,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}

type GenerateContentRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// TextPart wraps plain text.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart base64-encodes data as an inlineData part.
func InlinePart(mimeType string, data []byte) Part {
	return Part{InlineData: &InlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

// InlineBase64Part uses data that is already base64 encoded.
func InlineBase64Part(mimeType, data string) Part {
	return Part{InlineData: &InlineData{MimeType: mimeType, Data: data}}
}

// SystemText builds a systemInstruction content from text.
func SystemText(text string) *Content {
	return &Content{Parts: []Part{TextPart(text)}}
}

// FirstText joins the text parts of the first candidate.
func (r *GenerateContentResponse) FirstText() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// FirstInlineData returns the first inlineData part across all candidates.
func (r *GenerateContentResponse) FirstInlineData() *InlineData {
	if r == nil {
		return nil
	}
	for _, candidate := range r.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData
			}
		}
	}
	return nil
}
