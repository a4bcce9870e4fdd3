package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// RuleKind classifies a suffix list line.
//
// normal    - plain suffix, e.g. "co.uk"
// wildcard  - any line containing '*', e.g. "*.kawasaki.jp"
// exception - a line starting with '!', e.g. "!city.kawasaki.jp"
type RuleKind uint8

const (
	RuleNormal RuleKind = iota
	RuleWildcard
	RuleException
)

// String returns a stable string representation of the rule kind.
func (k RuleKind) String() string {
	switch k {
	case RuleNormal:
		return "normal"
	case RuleWildcard:
		return "wildcard"
	case RuleException:
		return "exception"
	default:
		return fmt.Sprintf("RuleKind(%d)", k)
	}
}

// ClassifyRule decides the kind of a rule line the same way consumers of the
// resource file do: '*' anywhere wins over a leading '!'.
func ClassifyRule(line string) RuleKind {
	if strings.Contains(line, "*") {
		return RuleWildcard
	}
	if strings.HasPrefix(line, "!") {
		return RuleException
	}
	return RuleNormal
}

// RuleName strips the exception marker and wildcard label from a rule line,
// leaving the domain part, e.g. "*.kawasaki.jp" -> "kawasaki.jp".
// A rule is only read up to the first whitespace.
func RuleName(line string) string {
	name := strings.TrimLeftFunc(line, unicode.IsSpace)
	if i := strings.IndexFunc(name, unicode.IsSpace); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "!")
	name = strings.TrimPrefix(name, "*.")
	return name
}
