// Package llm provides the model clients used for RFP extraction and
// proposal editing. Every provider reply is normalized into a Response
// before it leaves this package.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoModel is returned when no model client is configured.
var ErrNoModel = errors.New("llm: no model configured")

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Response is the provider-independent result of a single generation.
type Response struct {
	Text string
}

// Client generates text for a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (Response, error)
	Model() string
}

// RetryableError indicates a transient provider failure (rate limit or
// server error).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err wraps a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// statusError classifies a non-200 provider status.
func statusError(provider string, status int, body []byte) error {
	if status == 429 || status >= 500 {
		return &RetryableError{StatusCode: status, Message: string(body)}
	}
	return fmt.Errorf("%s api status %d: %s", provider, status, truncate(string(body), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
