// Package fetch downloads staged RFP files into local temporary files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrDownload wraps every failure to retrieve a file.
	ErrDownload = errors.New("download failed")
	// ErrTooLarge is returned when the body exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// StatusError reports a non-200 response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Downloader fetches file URLs over HTTP(S).
type Downloader struct {
	httpClient *http.Client
	maxBytes   int64
	retries    int
	dir        string
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

// Options configures a Downloader.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Retries  int
	Dir      string // temp directory, os.TempDir() when empty
	Logger   *slog.Logger
}

func New(opts Options) *Downloader {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 52428800
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxBytes:   opts.MaxBytes,
		retries:    opts.Retries,
		dir:        opts.Dir,
		backoff:    Backoff,
		log:        opts.Logger.With("component", "fetch"),
	}
}

// File is a downloaded temporary file inside its own directory. Call
// Remove when done.
type File struct {
	Path string
	Size int64
	dir  string
}

// Remove deletes the file and its directory. It is safe to call more
// than once.
func (f *File) Remove() error {
	switch {
	case f == nil:
		return nil
	case f.dir != "":
		return os.RemoveAll(f.dir)
	case f.Path != "":
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Download retrieves fileURL into a fresh temporary directory. The file
// keeps name as its base name when the extensions agree; the extension
// comes from the URL path, or from name when the URL has none. Rate
// limits, server errors and transport failures are retried.
func (d *Downloader) Download(ctx context.Context, fileURL, name string) (*File, error) {
	u, err := url.Parse(fileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrDownload, fileURL)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	if ext == "" {
		ext = ".tmp"
	}

	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			wait := d.backoff(attempt - 1)
			d.log.Warn("retrying download", "url", u.Redacted(), "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrDownload, ctx.Err())
			case <-time.After(wait):
			}
		}

		f, err := d.once(ctx, fileURL, localName(name, ext))
		if err == nil {
			d.log.Debug("downloaded", "url", u.Redacted(), "bytes", f.Size)
			return f, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrDownload, lastErr)
}

func (d *Downloader) once(ctx context.Context, fileURL, base string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > d.maxBytes {
		return nil, ErrTooLarge
	}

	dir, err := os.MkdirTemp(d.dir, "rfp-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	f := &File{Path: filepath.Join(dir, base), dir: dir}
	tmp, err := os.Create(f.Path)
	if err != nil {
		f.Remove()
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, d.maxBytes+1))
	closeErr := tmp.Close()
	switch {
	case err != nil:
		f.Remove()
		return nil, fmt.Errorf("write temp file: %w", err)
	case closeErr != nil:
		f.Remove()
		return nil, fmt.Errorf("close temp file: %w", closeErr)
	case n > d.maxBytes:
		f.Remove()
		return nil, ErrTooLarge
	}
	f.Size = n
	return f, nil
}

// localName returns a safe base name for the downloaded file.
func localName(name, ext string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, "/", "_")
	base = strings.ReplaceAll(base, "\\", "_")
	base = strings.ReplaceAll(base, "..", "_")
	if base == "" || base == "." || base == "_" || strings.ToLower(filepath.Ext(base)) != ext {
		return "document" + ext
	}
	return base
}

func retryable(err error) bool {
	if errors.Is(err, ErrTooLarge) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	var pe *os.PathError
	if errors.As(err, &pe) {
		return false
	}
	return true
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
