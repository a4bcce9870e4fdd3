package domain

import (
	"strings"
	"unicode/utf8"
)

// Document is an ordered sequence of suffix list lines without line terminators.
type Document struct {
	Lines []string
}

// NewDocument wraps lines in a Document. The slice is not copied.
func NewDocument(lines []string) Document {
	return Document{Lines: lines}
}

// Text joins the lines with a single "\n". No trailing line break is added.
func (d Document) Text() string {
	return strings.Join(d.Lines, "\n")
}

// Len returns the number of lines.
func (d Document) Len() int { return len(d.Lines) }

// IsASCII reports whether s contains only 7-bit characters.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
