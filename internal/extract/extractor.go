// Package extract turns a staged RFP document into a StructuredRFP with a
// single model call, falling back to a chunk-per-section structure when no
// usable model output exists.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/rfpagent/internal/chunker"
	"github.com/dgallion1/rfpagent/internal/llm"
	"github.com/dgallion1/rfpagent/internal/loader"
	"github.com/dgallion1/rfpagent/internal/parser"
)

var (
	// ErrLLMUnavailable covers a missing model, a failed call and a timeout.
	// It never leaves Extract.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrJSONExtraction means a reply arrived but held no usable RFP object.
	// It never leaves Extract.
	ErrJSONExtraction = errors.New("json extraction failed")
)

const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxPromptChars = 200000
)

// Path values reported in logs and Result.
const (
	PathLLM      = "llm"
	PathFallback = "fallback"
)

// Options configures an Extractor. Client may be nil, in which case every
// extraction takes the fallback path.
type Options struct {
	Client         llm.Client
	Loader         loader.Loader
	Timeout        time.Duration
	MaxPromptChars int
	Logger         *slog.Logger
}

// Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	client         llm.Client
	loader         loader.Loader
	timeout        time.Duration
	maxPromptChars int
	log            *slog.Logger
}

func New(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPromptChars <= 0 {
		opts.MaxPromptChars = DefaultMaxPromptChars
	}
	if opts.Loader == nil {
		opts.Loader = loader.New(chunker.DefaultConfig(), parser.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Extractor{
		client:         opts.Client,
		loader:         opts.Loader,
		timeout:        opts.Timeout,
		maxPromptChars: opts.MaxPromptChars,
		log:            opts.Logger.With("component", "extract"),
	}
}

// HasModel reports whether a model client is configured.
func (e *Extractor) HasModel() bool {
	return e.client != nil
}

// Model returns the configured model name, or "" without a client.
func (e *Extractor) Model() string {
	if e.client == nil {
		return ""
	}
	return e.client.Model()
}

// Result carries the structure and how it was produced.
type Result struct {
	RFP    *StructuredRFP
	Path   string
	Reason error
}

// Extract loads the document at path and returns its structure. Only
// loader errors and ErrFallback are returned; model and JSON failures are
// absorbed by the fallback.
func (e *Extractor) Extract(ctx context.Context, path string) (*StructuredRFP, error) {
	res, err := e.ExtractResult(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.RFP, nil
}

// ExtractResult is Extract with the chosen path and fallback reason.
func (e *Extractor) ExtractResult(ctx context.Context, path string) (*Result, error) {
	title := filepath.Base(path)
	log := e.log.With("file", title, "model", e.Model())

	chunks, err := e.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	combined := strings.Join(texts, " ")

	start := time.Now()
	rfp, reason := e.fromModel(ctx, log, title, combined)
	if reason == nil {
		log.Info("rfp extracted",
			"path", PathLLM,
			"sections", len(rfp.Sections),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return &Result{RFP: rfp, Path: PathLLM}, nil
	}

	rfp, err = Fallback(title, chunks)
	if err != nil {
		log.Error("fallback failed", "error", err)
		return nil, err
	}
	log.Warn("rfp extracted",
		"path", PathFallback,
		"sections", len(rfp.Sections),
		"reason", reason.Error(),
	)
	return &Result{RFP: rfp, Path: PathFallback, Reason: reason}, nil
}

// fromModel asks the model for the structure. The returned error wraps
// ErrLLMUnavailable or ErrJSONExtraction.
func (e *Extractor) fromModel(ctx context.Context, log *slog.Logger, title, text string) (*StructuredRFP, error) {
	if !e.HasModel() {
		return nil, fmt.Errorf("%w: %w", ErrLLMUnavailable, llm.ErrNoModel)
	}

	if cut, truncated := truncateRunes(text, e.maxPromptChars); truncated {
		log.Warn("document text truncated for prompt",
			"max_chars", e.maxPromptChars,
			"est_tokens", chunker.EstimateTokens(cut),
		)
		text = cut
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	log.Debug("calling model", "est_tokens", chunker.EstimateTokens(text))
	resp, err := e.client.Generate(callCtx, buildPrompt(text))
	if err != nil {
		log.Warn("model call failed", "error", err, "retryable", llm.IsRetryable(err))
		return nil, fmt.Errorf("%w: %w", ErrLLMUnavailable, err)
	}

	rfp, err := parseReply(resp.Text, title)
	if err != nil {
		log.Warn("could not parse model reply", "error", err, "reply_chars", len(resp.Text))
		return nil, err
	}
	return rfp, nil
}

// parseReply locates and decodes the RFP object in a model reply.
func parseReply(reply, title string) (*StructuredRFP, error) {
	raw, err := locateJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONExtraction, err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONExtraction, err)
	}
	_, hasMeta := keys["metadata"]
	_, hasSections := keys["sections"]
	if !hasMeta && !hasSections {
		return nil, fmt.Errorf("%w: object has neither metadata nor sections", ErrJSONExtraction)
	}

	var rfp StructuredRFP
	if err := json.Unmarshal([]byte(raw), &rfp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONExtraction, err)
	}
	rfp.normalize(title)
	return &rfp, nil
}
