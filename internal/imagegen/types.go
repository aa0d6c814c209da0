package imagegen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Image is a generated hairstyle render. It is replaced in place by every
// refinement and only persisted by an explicit gallery save.
type Image struct {
	Base64   string `json:"imageBase64"`
	MimeType string `json:"mimeType"`
}

// Bytes decodes the image payload.
func (i Image) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(i.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}

// DataURL renders the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + i.Base64
}

// Ext returns a file extension for the mime type.
func (i Image) Ext() string {
	switch strings.ToLower(i.MimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

// Empty reports whether no image is held.
func (i Image) Empty() bool { return i.Base64 == "" }

// SourceImage is the customer photo fed to synthesis.
type SourceImage struct {
	URL      string
	Data     []byte
	MIMEType string
}

// SynthesisRequest mirrors the fields of POST /v1/hairstyle-image.
type SynthesisRequest struct {
	OriginalImageURL    string `json:"originalImageUrl"`
	Owner               string `json:"firebaseUid"`
	HairstyleName       string `json:"hairstyleName"`
	HairstyleDesc       string `json:"hairstyleDesc"`
	HaircolorName       string `json:"haircolorName"`
	HaircolorDesc       string `json:"haircolorDesc"`
	RecommendedLevel    string `json:"recommendedLevel"`
	CurrentLevel        string `json:"currentLevel"`
	UserRequests        string `json:"userRequestsText,omitempty"`
	InspirationImageURL string `json:"inspirationImageUrl,omitempty"`
	// ReferenceRequired is set when the style or color is taken from the
	// inspiration image; synthesis then fails instead of rendering without it.
	ReferenceRequired bool `json:"referenceRequired,omitempty"`
}

// RefineRequest edits Base; the result replaces it.
type RefineRequest struct {
	Owner string
	Base  Image
	Text  string
}
