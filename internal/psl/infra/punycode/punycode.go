package punycode

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/idna"

	"github.com/haukened/psl-updater/internal/psl/domain"
)

// maxLabelLength is the DNS limit on a single label, in octets.
const maxLabelLength = 63

// ErrLabelLength is returned for empty labels and labels longer than 63 octets.
var ErrLabelLength = errors.New("label empty or too long")

// profile applies IDNA2003-style processing: UTS #46 mapping with
// transitional handling (so "ß" becomes "ss"), but without the STD3 ASCII
// rules. Suffix list rules carry '*' and '!' which STD3 would reject, and
// IDNA2003 has no hyphen placement rules.
var profile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(true),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// Encoder converts rule lines to their ASCII-compatible form label by label.
// Non-ASCII label conversions are memoized; the cache is safe for concurrent use.
type Encoder struct {
	cache  *lru.Cache[string, string]
	hits   uint64
	misses uint64
}

// New returns an Encoder whose label cache holds up to cacheSize entries.
// cacheSize <= 0 disables caching.
func New(cacheSize int) (*Encoder, error) {
	e := &Encoder{}
	if cacheSize <= 0 {
		return e, nil
	}
	c, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create label cache: %w", err)
	}
	e.cache = c
	return e, nil
}

// ToASCII returns the ASCII-compatible encoding of a whole line.
//
// The line is split on the IDNA label separators (".", "。", "．", "｡") and
// each label is handled on its own:
//   - ASCII labels are kept byte for byte
//   - other labels are mapped and punycoded with an "xn--" prefix
//   - every label except a trailing empty one must be 1 to 63 octets
//
// A pure-ASCII line is returned unchanged once its labels pass the length check.
func (e *Encoder) ToASCII(line string) (string, error) {
	if line == "" {
		return "", nil
	}

	if domain.IsASCII(line) {
		if err := checkASCIILabels(line); err != nil {
			return "", err
		}
		return line, nil
	}

	labels := splitLabels(line)
	trailingDot := false
	if n := len(labels); n > 1 && labels[n-1] == "" {
		trailingDot = true
		labels = labels[:n-1]
	}

	var b strings.Builder
	b.Grow(len(line) + 8)
	for i, label := range labels {
		encoded, err := e.encodeLabel(label)
		if err != nil {
			return "", fmt.Errorf("label %q: %w", label, err)
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(encoded)
	}
	if trailingDot {
		b.WriteByte('.')
	}
	return b.String(), nil
}

// Stats returns cumulative label cache hits and misses.
func (e *Encoder) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&e.hits), atomic.LoadUint64(&e.misses)
}

func (e *Encoder) encodeLabel(label string) (string, error) {
	if domain.IsASCII(label) {
		if !validLength(label) {
			return "", ErrLabelLength
		}
		return label, nil
	}

	if e.cache != nil {
		if v, ok := e.cache.Get(label); ok {
			atomic.AddUint64(&e.hits, 1)
			return v, nil
		}
		atomic.AddUint64(&e.misses, 1)
	}

	encoded, err := profile.ToASCII(label)
	if err != nil {
		return "", err
	}
	if !validLength(encoded) {
		return "", ErrLabelLength
	}

	if e.cache != nil {
		e.cache.Add(label, encoded)
	}
	return encoded, nil
}

// checkASCIILabels enforces label lengths on an ASCII line. The last label
// may be empty (a trailing dot) but not too long.
func checkASCIILabels(line string) error {
	labels := strings.Split(line, ".")
	for _, label := range labels[:len(labels)-1] {
		if !validLength(label) {
			return fmt.Errorf("label %q: %w", label, ErrLabelLength)
		}
	}
	if last := labels[len(labels)-1]; len(last) > maxLabelLength {
		return fmt.Errorf("label %q: %w", last, ErrLabelLength)
	}
	return nil
}

func validLength(label string) bool {
	return len(label) > 0 && len(label) <= maxLabelLength
}

// splitLabels splits on every label separator, keeping empty labels.
func splitLabels(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if isSeparator(r) {
			out = append(out, s[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	return append(out, s[start:])
}

func isSeparator(r rune) bool {
	switch r {
	case '.', '。', '．', '｡':
		return true
	}
	return false
}
