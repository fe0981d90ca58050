package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Here is "},{"text":"the JSON"}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("secret", "gemini-1.5-pro")
	c.baseURL = srv.URL
	resp, err := c.Generate(context.Background(), "extract this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Here is the JSON" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if gotPath != "/models/gemini-1.5-pro:generateContent" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotKey != "secret" || gotPrompt != "extract this" {
		t.Errorf("unexpected key/prompt %q/%q", gotKey, gotPrompt)
	}
	if c.Model() != "gemini-1.5-pro" {
		t.Errorf("unexpected model %q", c.Model())
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		sentinel  error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, true, nil},
		{"server error", http.StatusBadGateway, `upstream`, true, nil},
		{"bad model", http.StatusNotFound, `{"error":{"message":"model not found"}}`, false, nil},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, false, ErrEmptyResponse},
		{"empty parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, false, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewGeminiClient("k", "m")
			c.baseURL = srv.URL
			_, err := c.Generate(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error")
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("retryable=%v, want %v (%v)", IsRetryable(err), tt.retryable, err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("k", "m")
	c.baseURL = srv.URL
	_, err := c.Generate(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected block reason in error, got %v", err)
	}
}

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing auth headers")
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "claude-sonnet" || len(req.Messages) != 1 || req.Messages[0].Content != "draft" {
			t.Errorf("unexpected request %+v", req)
		}
		io.WriteString(w, `{"content":[{"type":"text","text":"refined "},{"type":"tool_use"},{"type":"text","text":"draft"}]}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", "claude-sonnet")
	c.baseURL = srv.URL
	resp, err := c.Generate(context.Background(), "draft")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "refined draft" {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestAnthropicOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m")
	c.baseURL = srv.URL
	_, err := c.Generate(context.Background(), "p")
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	var re *RetryableError
	if errors.As(err, &re) && re.StatusCode != 529 {
		t.Errorf("expected status 529, got %d", re.StatusCode)
	}
}

func TestGenerateHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewGeminiClient("k", "m")
	c.baseURL = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Generate(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
