package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"hairstudio/internal/domain"
)

type s3Object struct {
	data        []byte
	contentType string
}

// fakeS3 serves the path-style subset of the S3 API that MinioStore uses.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]s3Object
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: map[string]bool{}, objects: map[string]s3Object{}}
}

func (f *fakeS3) hasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

func (f *fakeS3) hasObject(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeS3) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, object, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	if object == "" {
		switch {
		case r.URL.Query().Has("location"):
			w.Header().Set("Content-Type", "application/xml")
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		case r.Method == http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut:
			f.buckets[bucket] = true
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
		return
	}

	key := bucket + "/" + object
	switch r.Method {
	case http.MethodPut:
		data, err := readS3Body(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.objects[key] = s3Object{data: data, contentType: r.Header.Get("Content-Type")}
		w.Header().Set("ETag", `"etag"`)
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			}
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Last-Modified", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		f.deleted = append(f.deleted, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

// readS3Body decodes the aws-chunked framing the client uses over plain HTTP.
func readS3Body(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return io.ReadAll(r.Body)
	}
	br := bufio.NewReader(r.Body)
	var out bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			return nil, err
		}
		if _, err := br.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestMinioStore(t *testing.T) (*MinioStore, *fakeS3, string) {
	t.Helper()
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	endpoint := strings.TrimPrefix(srv.URL, "http://")

	store, err := NewMinioStore(context.Background(), endpoint, "access", "secret-key", "hairstudio", false, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewMinioStore error: %v", err)
	}
	if !fake.hasBucket("hairstudio") {
		t.Fatalf("bucket was not created")
	}
	return store, fake, endpoint
}

func TestMinioStoreRoundTrip(t *testing.T) {
	store, fake, endpoint := newTestMinioStore(t)
	ctx := context.Background()

	body := []byte("png-bytes")
	if err := store.Put(ctx, "/gallery//u1/./a.png", bytes.NewReader(body), int64(len(body)), "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if !fake.hasObject("hairstudio/gallery/u1/a.png") {
		t.Fatal("object not stored under the sanitized key")
	}

	raw, err := store.URL(ctx, "gallery/u1/a.png")
	if err != nil {
		t.Fatalf("URL error: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse presigned url: %v", err)
	}
	if u.Host != endpoint || u.Path != "/hairstudio/gallery/u1/a.png" {
		t.Fatalf("presigned url = %s", raw)
	}
	if u.Query().Get("X-Amz-Expires") != "600" || u.Query().Get("X-Amz-Signature") == "" {
		t.Fatalf("presigned query = %s", u.RawQuery)
	}

	data, contentType, err := store.Get(ctx, "gallery/u1/a.png")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("Get = %q %q", data, contentType)
	}

	if err := store.Delete(ctx, "/gallery//u1/./a.png"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if deleted := fake.deletedKeys(); len(deleted) != 1 || deleted[0] != "hairstudio/gallery/u1/a.png" {
		t.Fatalf("deleted = %v", deleted)
	}
	if _, _, err := store.Get(ctx, "gallery/u1/a.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMinioStoreRejectsInvalidKeys(t *testing.T) {
	store, _, _ := newTestMinioStore(t)
	ctx := context.Background()
	if err := store.Put(ctx, "../escape", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Fatal("expected Put to reject traversal key")
	}
	if err := store.Delete(ctx, " "); err == nil {
		t.Fatal("expected Delete to reject empty key")
	}
}
