package imagegen

import (
	"fmt"
	"regexp"

	"hairstudio/internal/domain"
)

var dataURLPattern = regexp.MustCompile(`^data:(image/.+);base64,(.+)$`)

// ParseDataURL extracts the mime type and base64 payload of an image data URL.
func ParseDataURL(raw string) (Image, error) {
	m := dataURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return Image{}, fmt.Errorf("%w: expected data:image/*;base64,...", domain.ErrInvalidDataURL)
	}
	return Image{MimeType: m[1], Base64: m[2]}, nil
}
