package verifier

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	xpublicsuffix "golang.org/x/net/publicsuffix"

	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/domain"
)

// defaultFPRate is the duplicate pre-filter's target false-positive rate.
const defaultFPRate = 0.001

// Filter is the membership pre-check used to find duplicate candidates.
type Filter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// FilterFactory sizes a fresh Filter per document.
type FilterFactory interface {
	New(capacity uint64, fpRate float64) Filter
}

// Verifier checks a finished document before it is written.
type Verifier struct {
	factory FilterFactory
	fpRate  float64
	logger  log.Logger
}

// New returns a Verifier. fpRate outside (0, 1) uses the default.
func New(factory FilterFactory, fpRate float64, logger log.Logger) *Verifier {
	if !(fpRate > 0 && fpRate < 1) {
		fpRate = defaultFPRate
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Verifier{factory: factory, fpRate: fpRate, logger: logger}
}

// Verify builds a Summary of doc and reports problems.
//
// Checks:
//   - the document loads as a suffix list
//   - each ASCII rule, without its '!' or '*.' marker, is a valid domain name
//   - no line appears twice
//
// A *domain.VerifyError is returned when any check fails; the Summary is
// filled in either way. Drift is informational and never an error.
func (v *Verifier) Verify(doc domain.Document) (domain.Summary, error) {
	s := domain.Summary{Lines: doc.Len()}

	for _, line := range doc.Lines {
		switch domain.ClassifyRule(line) {
		case domain.RuleWildcard:
			s.Wildcards++
		case domain.RuleException:
			s.Exceptions++
		default:
			s.Normals++
		}

		if !domain.IsASCII(line) {
			continue
		}
		name := domain.RuleName(line)
		if !validName(name) {
			s.Malformed = append(s.Malformed, line)
			v.logger.Debug(map[string]any{"rule": line}, "verify_malformed")
			continue
		}
		if domain.ClassifyRule(line) == domain.RuleNormal && !knownSuffix(name) {
			s.Drift++
		}
	}

	s.Duplicates = v.duplicates(doc.Lines)

	parsed, err := load(doc)
	if err != nil {
		v.logger.Debug(map[string]any{"error": err.Error()}, "verify_parse_failed")
		return s, &domain.VerifyError{Summary: s, Err: fmt.Errorf("parse: %w", err)}
	}

	v.logger.Debug(map[string]any{"parsed_rules": parsed, "rules": s.Rules()}, "verify_done")

	switch {
	case len(s.Malformed) > 0:
		return s, &domain.VerifyError{Summary: s, Err: domain.ErrMalformedRules}
	case len(s.Duplicates) > 0:
		return s, &domain.VerifyError{Summary: s, Err: domain.ErrDuplicateRules}
	}
	return s, nil
}

// duplicates returns lines seen more than once, in order of first appearance.
// The Bloom filter narrows the exact count to lines that might repeat, so the
// exact map stays small for a clean list.
func (v *Verifier) duplicates(lines []string) []string {
	bf := v.factory.New(uint64(len(lines)), v.fpRate)
	candidates := make(map[string]int)
	for _, line := range lines {
		key := []byte(line)
		if bf.MightContain(key) {
			candidates[line] = 0
		}
		bf.Add(key)
	}
	if len(candidates) == 0 {
		return nil
	}

	var out []string
	for _, line := range lines {
		n, ok := candidates[line]
		if !ok {
			continue
		}
		candidates[line] = n + 1
		if n+1 == 2 {
			out = append(out, line)
		}
	}
	return out
}

// load parses the document the way a suffix list consumer would and returns
// the number of rules read.
func load(doc domain.Document) (n int, err error) {
	// NewRule slices past the marker without checking length
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid rule: %v", r)
		}
	}()

	list := publicsuffix.NewList()
	rules, err := list.Load(strings.NewReader(doc.Text()), &publicsuffix.ParserOption{PrivateDomains: true})
	if err != nil {
		return 0, err
	}
	return len(rules), nil
}

// validName reports whether a rule name is a usable domain name.
func validName(name string) bool {
	if name == "" {
		return false
	}
	_, ok := dns.IsDomainName(name)
	return ok
}

// knownSuffix reports whether the compiled-in table already lists name.
func knownSuffix(name string) bool {
	ps, _ := xpublicsuffix.PublicSuffix(strings.ToLower(name))
	return ps == strings.ToLower(name)
}
