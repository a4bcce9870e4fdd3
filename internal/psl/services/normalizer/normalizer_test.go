package normalizer

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/psl-updater/internal/psl/common/log"
)

func TestStripComment(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantCut bool
	}{
		{"com", "com", false},
		{"// ===BEGIN ICANN DOMAINS===", "", true},
		{"co.uk // United Kingdom", "co.uk ", true},
		{"http://example.com", "http:", true},
		{"a//b//c", "a", true},
		{"/single/slash", "/single/slash", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, cut := StripComment(tt.in)
		if got != tt.want || cut != tt.wantCut {
			t.Errorf("StripComment(%q) = (%q, %v), want (%q, %v)", tt.in, got, cut, tt.want, tt.wantCut)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "comment and blank removed",
			in:   "// comment\n\nexample.com\nbücher.de",
			want: []string{"example.com", "bücher.de"},
		},
		{
			name: "leading line break",
			in:   "\ncom\nnet",
			want: []string{"com", "net"},
		},
		{
			name: "runs of line breaks collapse",
			in:   "com\n\n\n\nnet\n\norg",
			want: []string{"com", "net", "org"},
		},
		{
			name: "trailing blank content",
			in:   "com\nnet\n\n  \n\t\n",
			want: []string{"com", "net"},
		},
		{
			name: "text before comment kept verbatim",
			in:   "co.uk // UK\n  jp// Japan",
			want: []string{"co.uk ", "  jp"},
		},
		{
			name: "lexical stripping inside a token",
			in:   "weird//rule.example",
			want: []string{"weird"},
		},
		{
			name: "crlf line breaks",
			in:   "// header\r\ncom\r\n\r\nnet\r\n",
			want: []string{"com", "net"},
		},
		{
			name: "rule prefixes untouched",
			in:   "*.kawasaki.jp\n!city.kawasaki.jp",
			want: []string{"*.kawasaki.jp", "!city.kawasaki.jp"},
		},
		{
			name: "comments only",
			in:   "// a\n// b\n\n",
			want: []string{},
		},
		{
			name: "empty",
			in:   "",
			want: []string{},
		},
	}

	n := New(log.NewNoopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Lines)
		})
	}
}

func TestNormalize_NoBlankLinesAndNoLeadingBreak(t *testing.T) {
	in := "\n\n// ===BEGIN ICANN DOMAINS===\n\n// ac : https://en.wikipedia.org/wiki/.ac\nac\ncom.ac\n\n\n// ad\nad\n\n// ===END ICANN DOMAINS===\n\n"
	doc, err := New(nil).Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"ac", "com.ac", "ad"}, doc.Lines)
	text := doc.Text()
	assert.False(t, strings.HasPrefix(text, "\n"))
	assert.NotContains(t, text, "\n\n")
	assert.False(t, strings.HasSuffix(text, "\n"))
}

func TestNormalize_LongLine(t *testing.T) {
	long := strings.Repeat("a", 100_000)
	doc, err := New(nil).Normalize("com\n" + long + "\nnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"com", long, "net"}, doc.Lines)
}

func TestNormalize_LineOverLimit(t *testing.T) {
	n := New(nil)
	n.maxLine = 16

	doc, err := n.Normalize("com\n// c\n" + strings.Repeat("a", 40) + "\nnet")
	require.Error(t, err)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.Contains(t, err.Error(), "scan line 3")
	assert.Empty(t, doc.Lines)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New(nil)
	first, err := n.Normalize("// c\n\ncom\n\nbücher.de // books\n")
	require.NoError(t, err)
	second, err := n.Normalize(first.Text())
	require.NoError(t, err)
	assert.Equal(t, first.Lines, second.Lines)
}
