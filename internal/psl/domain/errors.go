package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnexpectedStatus is wrapped by FetchError when the server answers with anything but 200.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrBodyTooLarge is wrapped by FetchError when the body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")
	// ErrInvalidUTF8 is wrapped by FetchError when the body cannot be decoded as UTF-8.
	ErrInvalidUTF8 = errors.New("response body is not valid UTF-8")
	// ErrMalformedRules is wrapped by VerifyError when rule lines fail name checks.
	ErrMalformedRules = errors.New("malformed rules")
	// ErrDuplicateRules is wrapped by VerifyError when a line appears more than once.
	ErrDuplicateRules = errors.New("duplicate rules")
)

// FetchError reports a failed download of the source document.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EncodingError reports a rule line that has no ASCII-compatible encoding.
type EncodingError struct {
	Line int // 1-based position in the normalized document
	Text string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// IOError reports a failure writing the destination file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// VerifyError reports a document that failed post-transform checks.
type VerifyError struct {
	Summary Summary
	Err     error
}

func (e *VerifyError) Error() string {
	var parts []string
	if n := len(e.Summary.Malformed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d malformed", n))
	}
	if n := len(e.Summary.Duplicates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate", n))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("verify: %v", e.Err)
	}
	return fmt.Sprintf("verify: %v (%s)", e.Err, strings.Join(parts, ", "))
}

func (e *VerifyError) Unwrap() error { return e.Err }
