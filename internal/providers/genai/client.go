package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger

	// MaxAttempts is used when Call is given a non-positive attempt count.
	MaxAttempts int
	// InitialDelay is the first backoff; it doubles after every retryable
	// failure. MaxDelay caps it; zero means uncapped.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Sleep waits between attempts. Tests replace it to record delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client posts JSON to the model API and retries 429/500/503 and transport
// failures with exponential backoff. It holds no per-call state.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a client with defaults for anything left unset.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	initial := opts.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		httpClient:   client,
		logger:       infra.OrDiscard(opts.Logger),
		maxAttempts:  attempts,
		initialDelay: initial,
		maxDelay:     opts.MaxDelay,
		sleep:        sleep,
	}, nil
}

// GenerateContent calls models/{model}:generateContent.
func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	if req == nil {
		return nil, &domain.ValidationError{Field: "request", Reason: "is required"}
	}
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	var resp GenerateContentResponse
	if err := c.Call(ctx, path, req, 0, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Call posts payload to endpoint, decoding a 2xx body into out. endpoint may
// be absolute or a path relative to the base URL. maxAttempts <= 0 uses the
// configured default.
func (c *Client) Call(ctx context.Context, endpoint string, payload any, maxAttempts int, out any) error {
	if maxAttempts <= 0 {
		maxAttempts = c.maxAttempts
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("genai: marshal request: %w", err)
	}
	target := c.resolve(endpoint)
	schedule := c.schedule()

	for attempt := 1; ; attempt++ {
		status, data, err := c.post(ctx, target, body)
		var lastErr *domain.RemoteCallError
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr = &domain.RemoteCallError{Attempts: attempt, Retryable: true, Err: err}
		case status >= 200 && status < 300:
			if out == nil || len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return &domain.RemoteCallError{
					Status:   status,
					Message:  "undecodable response body",
					Attempts: attempt,
					Err:      err,
				}
			}
			return nil
		case retryable(status):
			code, msg := parseRemoteError(data)
			lastErr = &domain.RemoteCallError{Status: status, Code: code, Message: msg, Attempts: attempt, Retryable: true}
		default:
			code, msg := parseRemoteError(data)
			c.logger.Debug().Int("status", status).Str("endpoint", endpoint).Msg("genai: non-retryable response")
			return &domain.RemoteCallError{Status: status, Code: code, Message: msg, Attempts: attempt}
		}

		if attempt >= maxAttempts {
			c.logger.Warn().Err(lastErr).Str("endpoint", endpoint).Int("attempts", attempt).Msg("genai: giving up")
			return lastErr
		}
		delay := schedule.NextBackOff()
		c.logger.Debug().
			Int("status", lastErr.Status).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("endpoint", endpoint).
			Msg("genai: retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// schedule yields initialDelay, 2x, 4x, ... with no jitter and no elapsed
// time limit.
func (c *Client) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	if c.maxDelay > 0 {
		b.MaxInterval = c.maxDelay
	}
	b.Reset()
	return b
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func (c *Client) post(ctx context.Context, target string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// parseRemoteError extracts {error:{code,message}}, falling back to the raw
// body text.
func parseRemoteError(data []byte) (int, string) {
	var apiErr errorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Code, apiErr.Error.Message
	}
	return 0, strings.TrimSpace(string(data))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryableFailure reports whether err is a terminal retryable failure,
// i.e. the remote side stayed unavailable for every attempt.
func IsRetryableFailure(err error) bool {
	var rc *domain.RemoteCallError
	return errors.As(err, &rc) && rc.Retryable
}
