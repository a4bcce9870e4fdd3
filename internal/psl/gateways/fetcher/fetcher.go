package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/domain"
)

const (
	errURLRequired     = "source URL is required"
	errBuildRequest    = "build request: %w"
	errBodyOverLimit   = "%w: more than %d bytes"
	errReadBodyFailed  = "read body: %w"
	defaultTimeout     = 30 * time.Second
	defaultMaxBytes    = 16 << 20
	defaultUserAgent   = "psl-updater"
	headerETag         = "ETag"
	headerLastModified = "Last-Modified"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result is the decoded body of a successful download plus the response
// metadata worth recording.
type Result struct {
	Text         string
	StatusCode   int
	ETag         string
	LastModified string
	Bytes        int64
}

// Options configures a Fetcher.
type Options struct {
	URL       string
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// options to inject for testing purposes
	Client *http.Client
	Logger log.Logger
}

// Fetcher downloads the suffix list with a single HTTP GET.
type Fetcher struct {
	url       string
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	client    *http.Client
	logger    log.Logger
}

// New creates a Fetcher. Zero Timeout, MaxBytes and UserAgent fall back to
// defaults; a nil Client means http.DefaultClient.
func New(opts Options) (*Fetcher, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf(errURLRequired)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Fetcher{
		url:       opts.URL,
		timeout:   opts.Timeout,
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
		client:    opts.Client,
		logger:    opts.Logger,
	}, nil
}

// URL returns the source location.
func (f *Fetcher) URL() string { return f.url }

// ensureContextDeadline applies the fetcher's timeout when ctx has no deadline.
func (f *Fetcher) ensureContextDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, f.timeout)
	}
	return ctx, nil
}

// Fetch performs the GET and returns the body as UTF-8 text.
// Every failure is a *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	ctx, cancel := f.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return Result{}, f.fail(0, fmt.Errorf(errBuildRequest, err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain")

	f.logger.Debug(map[string]any{"url": f.url, "timeout": f.timeout.String()}, "fetch_start")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, f.fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return Result{}, f.fail(resp.StatusCode, domain.ErrUnexpectedStatus)
	}

	// read one byte past the limit to tell "exactly at limit" from "over"
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Result{}, f.fail(resp.StatusCode, fmt.Errorf(errReadBodyFailed, err))
	}
	if int64(len(body)) > f.maxBytes {
		return Result{}, f.fail(resp.StatusCode, fmt.Errorf(errBodyOverLimit, domain.ErrBodyTooLarge, f.maxBytes))
	}

	n := int64(len(body))
	body = bytes.TrimPrefix(body, utf8BOM)
	if !utf8.Valid(body) {
		return Result{}, f.fail(resp.StatusCode, domain.ErrInvalidUTF8)
	}

	f.logger.Debug(map[string]any{"url": f.url, "status": resp.StatusCode, "bytes": n}, "fetch_done")

	return Result{
		Text:         string(body),
		StatusCode:   resp.StatusCode,
		ETag:         resp.Header.Get(headerETag),
		LastModified: resp.Header.Get(headerLastModified),
		Bytes:        n,
	}, nil
}

func (f *Fetcher) fail(status int, err error) error {
	f.logger.Debug(map[string]any{"url": f.url, "status": status, "error": err.Error()}, "fetch_failed")
	return &domain.FetchError{URL: f.url, StatusCode: status, Err: err}
}
