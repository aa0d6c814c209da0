package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"hairstudio/internal/domain"
)

type step struct {
	status int
	body   string
	err    error
}

// sequenceTransport answers each request with the next scripted step.
type sequenceTransport struct {
	mu       sync.Mutex
	steps    []step
	requests []*http.Request
	bodies   [][]byte
}

func (s *sequenceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, data)
	}
	if len(s.steps) == 0 {
		return nil, errors.New("no scripted response")
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &http.Response{
		StatusCode: next.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(next.body)),
		Request:    req,
	}, nil
}

type delayRecorder struct {
	delays []time.Duration
}

func (d *delayRecorder) sleep(ctx context.Context, delay time.Duration) error {
	d.delays = append(d.delays, delay)
	return nil
}

func newTestClient(t *testing.T, transport http.RoundTripper, rec *delayRecorder) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    "https://example.test/v1beta",
		HTTPClient: &http.Client{Transport: transport},
		Sleep:      rec.sleep,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestCallRetriesThenSucceeds(t *testing.T) {
	transport := &sequenceTransport{steps: []step{
		{status: http.StatusServiceUnavailable, body: `{"error":{"code":503,"message":"overloaded"}}`},
		{status: http.StatusServiceUnavailable, body: `{"error":{"code":503,"message":"overloaded"}}`},
		{status: http.StatusOK, body: `{"ok":true}`},
	}}
	rec := &delayRecorder{}
	client := newTestClient(t, transport, rec)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.Call(context.Background(), "/models/m:generateContent", map[string]string{"a": "b"}, 3, &out); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected decoded body")
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(rec.delays, want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	if len(transport.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(transport.requests))
	}
	if got := transport.requests[0].URL.Query().Get("key"); got != "test-key" {
		t.Fatalf("api key query = %q, want test-key", got)
	}
	if got := transport.requests[0].URL.Path; got != "/v1beta/models/m:generateContent" {
		t.Fatalf("path = %q", got)
	}
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	transport := &sequenceTransport{steps: []step{
		{status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"bad schema"}}`},
	}}
	rec := &delayRecorder{}
	client := newTestClient(t, transport, rec)

	err := client.Call(context.Background(), "/x", struct{}{}, 3, nil)
	var rc *domain.RemoteCallError
	if !errors.As(err, &rc) {
		t.Fatalf("expected RemoteCallError, got %v", err)
	}
	if rc.Retryable {
		t.Fatalf("400 must not be retryable")
	}
	if rc.Code != 400 || rc.Message != "bad schema" {
		t.Fatalf("code/message = %d/%q", rc.Code, rc.Message)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("delays = %v, want none", rec.delays)
	}
	if !strings.Contains(err.Error(), "bad schema") {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestCallFallsBackToRawErrorText(t *testing.T) {
	transport := &sequenceTransport{steps: []step{
		{status: http.StatusForbidden, body: "quota exceeded for project"},
	}}
	client := newTestClient(t, transport, &delayRecorder{})

	err := client.Call(context.Background(), "/x", struct{}{}, 3, nil)
	var rc *domain.RemoteCallError
	if !errors.As(err, &rc) {
		t.Fatalf("expected RemoteCallError, got %v", err)
	}
	if rc.Message != "quota exceeded for project" {
		t.Fatalf("message = %q", rc.Message)
	}
}

func TestCallExhaustsAttempts(t *testing.T) {
	for _, attempts := range []int{1, 3, 5} {
		var steps []step
		for i := 0; i < attempts; i++ {
			steps = append(steps, step{status: http.StatusServiceUnavailable})
		}
		transport := &sequenceTransport{steps: steps}
		rec := &delayRecorder{}
		client := newTestClient(t, transport, rec)

		err := client.Call(context.Background(), "/x", struct{}{}, attempts, nil)
		var rc *domain.RemoteCallError
		if !errors.As(err, &rc) {
			t.Fatalf("attempts=%d: expected RemoteCallError, got %v", attempts, err)
		}
		if !rc.Retryable || rc.Status != http.StatusServiceUnavailable || rc.Attempts != attempts {
			t.Fatalf("attempts=%d: got %+v", attempts, rc)
		}
		if len(transport.requests) != attempts {
			t.Fatalf("attempts=%d: requests = %d", attempts, len(transport.requests))
		}
		if len(rec.delays) != attempts-1 {
			t.Fatalf("attempts=%d: delays = %v", attempts, rec.delays)
		}
		if !IsRetryableFailure(err) {
			t.Fatalf("attempts=%d: IsRetryableFailure = false", attempts)
		}
	}
}

func TestCallRetriesTransportErrors(t *testing.T) {
	transport := &sequenceTransport{steps: []step{
		{err: errors.New("connection reset")},
		{status: http.StatusTooManyRequests},
		{status: http.StatusInternalServerError},
		{status: http.StatusOK, body: `{}`},
	}}
	rec := &delayRecorder{}
	client := newTestClient(t, transport, rec)

	if err := client.Call(context.Background(), "/x", struct{}{}, 4, &map[string]any{}); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(rec.delays, want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
}

func TestCallCapsBackoff(t *testing.T) {
	transport := &sequenceTransport{steps: []step{
		{status: 503}, {status: 503}, {status: 503}, {status: 503},
	}}
	rec := &delayRecorder{}
	client, err := NewClient(Options{
		BaseURL:      "https://example.test",
		HTTPClient:   &http.Client{Transport: transport},
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
		Sleep:        rec.sleep,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	_ = client.Call(context.Background(), "/x", struct{}{}, 4, nil)
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if !reflect.DeepEqual(rec.delays, want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
}

func TestCallStopsWhenSleepIsCancelled(t *testing.T) {
	transport := &sequenceTransport{steps: []step{{status: 503}, {status: 200, body: `{}`}}}
	client, err := NewClient(Options{
		HTTPClient: &http.Client{Transport: transport},
		Sleep: func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		},
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.Call(context.Background(), "/x", struct{}{}, 3, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(transport.requests))
	}
}

func TestCallUndecodableSuccessIsNotRetried(t *testing.T) {
	transport := &sequenceTransport{steps: []step{{status: 200, body: `not json`}}}
	rec := &delayRecorder{}
	client := newTestClient(t, transport, rec)

	var out map[string]any
	err := client.Call(context.Background(), "/x", struct{}{}, 3, &out)
	var rc *domain.RemoteCallError
	if !errors.As(err, &rc) || rc.Retryable {
		t.Fatalf("expected non-retryable RemoteCallError, got %v", err)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("delays = %v", rec.delays)
	}
}

func TestGenerateContent(t *testing.T) {
	transport := &sequenceTransport{steps: []step{{
		status: 200,
		body:   `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"},{"inlineData":{"mimeType":"image/png","data":"AAA"}}]}}]}`,
	}}}
	client := newTestClient(t, transport, &delayRecorder{})

	req := &GenerateContentRequest{
		SystemInstruction: SystemText("be brief"),
		Contents:          []Content{{Role: "user", Parts: []Part{TextPart("hello"), InlinePart("image/jpeg", []byte{1, 2, 3})}}},
		GenerationConfig:  &GenerationConfig{ResponseMimeType: "application/json"},
	}
	resp, err := client.GenerateContent(context.Background(), "gemini-test", req)
	if err != nil {
		t.Fatalf("GenerateContent error: %v", err)
	}
	if got := resp.FirstText(); got != `{"a":1}` {
		t.Fatalf("FirstText = %q", got)
	}
	inline := resp.FirstInlineData()
	if inline == nil || inline.Data != "AAA" || inline.MimeType != "image/png" {
		t.Fatalf("FirstInlineData = %+v", inline)
	}

	var sent map[string]any
	if err := json.Unmarshal(transport.bodies[0], &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if _, ok := sent["systemInstruction"]; !ok {
		t.Fatalf("systemInstruction missing from %s", transport.bodies[0])
	}
	contents := sent["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	inlineSent := parts[1].(map[string]any)["inlineData"].(map[string]any)
	if inlineSent["data"] != "AQID" || inlineSent["mimeType"] != "image/jpeg" {
		t.Fatalf("inline part = %v", inlineSent)
	}
}
