package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Modified time.Time
	Data     []byte
}

// Write streams assets into w as a zip archive. Repeated filenames get a
// numeric suffix so no entry is shadowed.
func Write(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := uniqueName(asset.Filename, seen)
		header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: asset.Modified}
		if strings.HasPrefix(asset.MIME, "image/") && asset.MIME != "image/svg+xml" {
			header.Method = zip.Store
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", name, err)
		}
		if _, err := entry.Write(asset.Data); err != nil {
			return fmt.Errorf("zip write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func uniqueName(name string, seen map[string]int) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}
