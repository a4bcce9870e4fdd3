package normalizer

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/domain"
)

// commentMarker starts an end-of-line comment. Matching is lexical: the
// marker is honored wherever it appears, even mid-token.
const commentMarker = "//"

// Normalizer turns the raw suffix list into rule lines only.
type Normalizer struct {
	logger log.Logger
	// maxLine caps a single line in bytes; 0 means the whole text.
	maxLine int
}

// New returns a Normalizer. A nil logger discards output.
func New(logger log.Logger) *Normalizer {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Normalizer{logger: logger}
}

// Normalize strips comments and blank lines from text.
//
// Behavior:
//   - Everything from the first "//" to the end of a line is removed; text before it is kept verbatim
//   - Runs of line breaks collapse to one, so no empty lines survive
//   - Whitespace-only lines count as blank, which also drops leading and trailing blank content
//   - "\r\n" counts as a single line break
//
// Order of the remaining lines is preserved. An error is returned only when
// the text cannot be scanned.
func (n *Normalizer) Normalize(text string) (domain.Document, error) {
	maxLine := n.maxLine
	if maxLine <= 0 {
		// a line can never be longer than the whole text
		maxLine = len(text) + 1
	}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	out := make([]string, 0, strings.Count(text, "\n")/2+1)
	var lineNo, comments, blanks int
	for scanner.Scan() {
		lineNo++
		line, cut := StripComment(scanner.Text())
		if cut {
			comments++
		}
		if isBlank(line) {
			blanks++
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		n.logger.Debug(map[string]any{"error": err.Error(), "lines": len(out)}, "normalize_failed")
		return domain.Document{}, fmt.Errorf("scan line %d: %w", lineNo+1, err)
	}

	n.logger.Debug(map[string]any{
		"in_bytes":         len(text),
		"lines":            len(out),
		"comments_removed": comments,
		"blanks_removed":   blanks,
	}, "normalize_done")

	return domain.NewDocument(out), nil
}

// StripComment removes the first "//" and everything after it.
// It reports whether a comment was found.
func StripComment(line string) (string, bool) {
	if idx := strings.Index(line, commentMarker); idx >= 0 {
		return line[:idx], true
	}
	return line, false
}

// isBlank reports whether a line carries nothing but whitespace.
func isBlank(line string) bool {
	return strings.TrimFunc(line, isSpace) == ""
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}
