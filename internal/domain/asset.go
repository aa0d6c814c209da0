package domain

import (
	"strings"
	"time"
)

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// AssetKey identifies one of the fixed customer media slots.
type AssetKey string

const (
	KeyFrontPhoto       AssetKey = "item-front-photo"
	KeySidePhoto        AssetKey = "item-side-photo"
	KeyBackPhoto        AssetKey = "item-back-photo"
	KeyFrontVideo       AssetKey = "item-front-video"
	KeyBackVideo        AssetKey = "item-back-video"
	KeyInspirationPhoto AssetKey = "item-inspiration-photo"
)

// RequiredKeys lists the assets that gate diagnosis, in request order.
var RequiredKeys = []AssetKey{
	KeyFrontPhoto,
	KeySidePhoto,
	KeyBackPhoto,
	KeyFrontVideo,
	KeyBackVideo,
}

// ParseAssetKey validates a raw key coming from a request.
func ParseAssetKey(raw string) (AssetKey, bool) {
	key := AssetKey(strings.TrimSpace(raw))
	if key == KeyInspirationPhoto || key.Required() {
		return key, true
	}
	return "", false
}

// Required reports whether the key participates in the diagnosis gate.
func (k AssetKey) Required() bool {
	for _, r := range RequiredKeys {
		if r == k {
			return true
		}
	}
	return false
}

// Kind is derived from the key name, not from the file contents.
func (k AssetKey) Kind() AssetKind {
	if strings.Contains(string(k), "video") {
		return AssetKindVideo
	}
	return AssetKindImage
}

// InferMIME picks the media type sent to the model for an uploaded asset URL.
func InferMIME(key AssetKey, url string) string {
	if key.Kind() == AssetKindVideo {
		if strings.Contains(url, ".mp4") {
			return "video/mp4"
		}
		return "video/quicktime"
	}
	if strings.Contains(url, ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// Asset is one customer media item selected for upload.
type Asset struct {
	Key         AssetKey
	Owner       string
	Filename    string
	ContentType string
	Data        []byte
	SelectedAt  time.Time
}

// Size returns the payload length in bytes.
func (a Asset) Size() int64 { return int64(len(a.Data)) }
