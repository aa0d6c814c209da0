package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hairstudio/internal/domain"
)

// Fetcher downloads media referenced by URL before it is inlined into a
// model request. Only hosts on the allowlist are fetched.
type Fetcher struct {
	client   *http.Client
	allowed  map[string]struct{}
	maxBytes int64
}

// NewFetcher builds a Fetcher. An empty allowlist permits every host.
func NewFetcher(client *http.Client, allowlist []string, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	allowed := make(map[string]struct{}, len(allowlist))
	for _, host := range allowlist {
		if h := strings.ToLower(strings.TrimSpace(host)); h != "" {
			allowed[h] = struct{}{}
		}
	}
	f := &Fetcher{allowed: allowed, maxBytes: maxBytes}

	// Every redirect hop must pass the allowlist too.
	c := *client
	next := c.CheckRedirect
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := f.Allowed(req.URL.String()); err != nil {
			return err
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	f.client = &c
	return f
}

// Allowed reports whether rawURL may be fetched.
func (f *Fetcher) Allowed(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return &domain.ValidationError{Field: "url", Reason: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &domain.ValidationError{Field: "url", Reason: "unsupported scheme " + u.Scheme}
	}
	if len(f.allowed) == 0 {
		return nil
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if _, ok := f.allowed[strings.ToLower(host)]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotAllowed, host)
	}
	return nil
}

// Fetch returns the body and Content-Type of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.Allowed(rawURL); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch %s: status %d", redact(rawURL), resp.StatusCode)
	}
	data, err := ReadAllLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", redact(rawURL), err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// redact drops the query string, which carries presign signatures.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
