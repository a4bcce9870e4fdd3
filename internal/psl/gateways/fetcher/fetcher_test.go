package fetcher

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/psl-updater/internal/psl/domain"
)

const testURL = "https://publicsuffix.example.test/list/public_suffix_list.dat"

func newTestFetcher(t *testing.T, opts Options) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	if opts.URL == "" {
		opts.URL = testURL
	}
	opts.Client = &http.Client{Transport: mt}
	f, err := New(opts)
	require.NoError(t, err)
	return f, mt
}

func TestNew_Defaults(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), errURLRequired)

	f, err := New(Options{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, f.timeout)
	assert.Equal(t, int64(defaultMaxBytes), f.maxBytes)
	assert.Equal(t, defaultUserAgent, f.userAgent)
	assert.Same(t, http.DefaultClient, f.client)
	assert.NotNil(t, f.logger)
	assert.Equal(t, testURL, f.URL())
}

func TestFetch_Success(t *testing.T) {
	f, mt := newTestFetcher(t, Options{UserAgent: "psl-updater/test"})

	body := "// comment\ncom\nbücher.de\n"
	mt.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "psl-updater/test", req.Header.Get("User-Agent"))
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("ETag", `"abc"`)
		resp.Header.Set("Last-Modified", "Fri, 16 Oct 2026 08:00:00 GMT")
		return resp, nil
	})

	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, body, res.Text)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `"abc"`, res.ETag)
	assert.Equal(t, "Fri, 16 Oct 2026 08:00:00 GMT", res.LastModified)
	assert.Equal(t, int64(len(body)), res.Bytes)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestFetch_StripsBOM(t *testing.T) {
	f, mt := newTestFetcher(t, Options{})
	mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewBytesResponder(http.StatusOK, []byte("\xEF\xBB\xBFcom\n")))

	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "com\n", res.Text)
	assert.Equal(t, int64(7), res.Bytes)
}

func TestFetch_Non200IsFetchError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNoContent, http.StatusNotModified} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f, mt := newTestFetcher(t, Options{})
			mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(status, "nope"))

			_, err := f.Fetch(context.Background())
			require.Error(t, err)

			var fe *domain.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, status, fe.StatusCode)
			assert.Equal(t, testURL, fe.URL)
			assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	f, mt := newTestFetcher(t, Options{})
	mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := f.Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetch_InvalidUTF8(t *testing.T) {
	f, mt := newTestFetcher(t, Options{})
	mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewBytesResponder(http.StatusOK, []byte{'c', 'o', 'm', '\n', 0xff, 0xfe}))

	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidUTF8)
}

func TestFetch_BodyLimit(t *testing.T) {
	t.Run("at limit", func(t *testing.T) {
		f, mt := newTestFetcher(t, Options{MaxBytes: 8})
		mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusOK, "12345678"))

		res, err := f.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "12345678", res.Text)
	})

	t.Run("over limit", func(t *testing.T) {
		f, mt := newTestFetcher(t, Options{MaxBytes: 8})
		mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusOK, strings.Repeat("x", 9)))

		_, err := f.Fetch(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBodyTooLarge)
	})
}

func TestFetch_ContextDeadline(t *testing.T) {
	f, mt := newTestFetcher(t, Options{Timeout: time.Minute})

	var sawDeadline bool
	mt.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
		_, sawDeadline = req.Context().Deadline()
		return httpmock.NewStringResponse(http.StatusOK, "com"), nil
	})

	_, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, sawDeadline, "fetch should apply its timeout when the caller sets none")
}

func TestFetch_CancelledContext(t *testing.T) {
	f, mt := newTestFetcher(t, Options{})
	mt.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx)
	require.Error(t, err)

	var fe *domain.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_BadURL(t *testing.T) {
	f, err := New(Options{URL: "http://[::1"})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	assert.True(t, errors.As(err, &fe))
}
