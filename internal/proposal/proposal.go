// Package proposal implements the model-assisted editing features used
// after an RFP has been extracted: free-form edits of the proposal document,
// refinement of a draft, and compilation of question responses.
package proposal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/rfpagent/internal/fetch"
	"github.com/dgallion1/rfpagent/internal/llm"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Messages returned in place of model output.
const (
	NotConfiguredMessage = "LLM not configured or unavailable. Set the GEMINI_MODEL environment variable to a supported model and ensure the API key/permissions are correct."
	CallFailedMessage    = "LLM call failed; check server logs for details."
)

// ErrNoDocument is returned when an RFP has no generated proposal document.
var ErrNoDocument = errors.New("no proposal document")

// Fetcher downloads a URL into a local temporary file.
type Fetcher interface {
	Download(ctx context.Context, fileURL, name string) (*fetch.File, error)
}

// TextLoader extracts the full text of a local document.
type TextLoader interface {
	Text(ctx context.Context, path string) (string, error)
}

type Options struct {
	Client  llm.Client // nil disables model features
	Fetcher Fetcher
	Loader  TextLoader
	Timeout time.Duration
	Logger  *slog.Logger
}

type Service struct {
	client  llm.Client
	fetcher Fetcher
	loader  TextLoader
	timeout time.Duration
	md      goldmark.Markdown
	policy  *bluemonday.Policy
	log     *slog.Logger
}

func New(opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		client:  opts.Client,
		fetcher: opts.Fetcher,
		loader:  opts.Loader,
		timeout: opts.Timeout,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:  bluemonday.UGCPolicy(),
		log:     opts.Logger.With("component", "proposal"),
	}
}

// HasModel reports whether a model client is configured.
func (s *Service) HasModel() bool {
	return s.client != nil
}

// FileText downloads the document at fileURL and returns its text.
func (s *Service) FileText(ctx context.Context, fileURL string) (string, error) {
	if fileURL == "" {
		return "", ErrNoDocument
	}
	f, err := s.fetcher.Download(ctx, fileURL, "")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Remove(); err != nil {
			s.log.Warn("failed to remove temp file", "path", f.Path, "error", err)
		}
	}()
	return s.loader.Text(ctx, f.Path)
}

// CustomEdit applies instruction to the document at fileURL. Errors are
// returned only when the document cannot be read; model problems are
// reported in the returned text.
func (s *Service) CustomEdit(ctx context.Context, fileURL, instruction string) (string, error) {
	fileText, err := s.FileText(ctx, fileURL)
	if err != nil {
		return "", err
	}
	if !s.HasModel() {
		return NotConfiguredMessage, nil
	}

	out, err := s.generate(ctx, "File Content:\n"+fileText+"\n\nInstruction: "+instruction)
	if err != nil {
		s.log.Error("custom edit failed", "error", err, "retryable", llm.IsRetryable(err))
		return CallFailedMessage, nil
	}
	return out, nil
}

// Refined is a finalized proposal.
type Refined struct {
	Markdown string
	HTML     string
}

const refinePrompt = "You are an expert proposal writer. Refine and finalize the following proposal draft into a professional, cohesive document suitable for submission. Format with appropriate sections, summary, and conclusion. Return the result in Markdown format.\n\nProposal Draft:\n"

// Refine turns a draft into a finished Markdown proposal plus sanitized
// HTML. It returns llm.ErrNoModel without a client.
func (s *Service) Refine(ctx context.Context, draft string) (*Refined, error) {
	if !s.HasModel() {
		return nil, llm.ErrNoModel
	}
	md, err := s.generate(ctx, refinePrompt+draft)
	if err != nil {
		return nil, err
	}
	html, err := s.RenderHTML(md)
	if err != nil {
		return nil, err
	}
	return &Refined{Markdown: md, HTML: html}, nil
}

const compilePrompt = `You are an expert proposal writer. Compile the following question responses into a cohesive, professional proposal document that addresses the original RFP requirements.

Format the proposal with appropriate sections, an executive summary, introduction, and conclusion. Ensure the document flows well and presents a compelling case for why our company should be selected.

The final proposal should be in Markdown format with appropriate headings, bullet points, and formatting.

rfp_data: `

// Compile builds a Markdown proposal from RFP data and question responses.
// It returns llm.ErrNoModel without a client.
func (s *Service) Compile(ctx context.Context, rfpData []byte) (string, error) {
	if !s.HasModel() {
		return "", llm.ErrNoModel
	}
	return s.generate(ctx, compilePrompt+string(rfpData))
}

// RenderHTML converts Markdown to HTML with unsafe markup removed.
func (s *Service) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return s.policy.Sanitize(buf.String()), nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.log.Info("model call complete", "model", s.client.Model(), "duration_ms", time.Since(start).Milliseconds())
	return resp.Text, nil
}
