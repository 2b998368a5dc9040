package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher decides whether a single line of source text matches. Matching
// is line-oriented: implementations never see surrounding lines.
//
// Match may return an error for matchers whose evaluation can fail at
// runtime; the engine records such errors and keeps scanning.
type Matcher interface {
	Match(line string) (bool, error)
}

// Literal matches lines containing a fixed substring.
type Literal string

// NewLiteral builds a substring matcher. An empty substring is rejected
// because it would match every line.
func NewLiteral(sub string) (Literal, error) {
	if strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("literal matcher requires a non-empty substring")
	}
	return Literal(sub), nil
}

func (l Literal) Match(line string) (bool, error) {
	return strings.Contains(line, string(l)), nil
}

// Regex matches lines against a compiled regular expression.
type Regex struct {
	re *regexp.Regexp
}

// NewRegex compiles the expression. Malformed expressions are rejected
// here so registries can fail fast at load time.
func NewRegex(expr string) (Regex, error) {
	if strings.TrimSpace(expr) == "" {
		return Regex{}, fmt.Errorf("regex matcher requires a non-empty expression")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Regex{}, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return Regex{re: re}, nil
}

// MustRegex is NewRegex for built-in rules whose patterns are constants.
func MustRegex(expr string) Regex {
	m, err := NewRegex(expr)
	if err != nil {
		panic(err)
	}
	return m
}

func (r Regex) Match(line string) (bool, error) {
	if r.re == nil {
		return false, fmt.Errorf("regex matcher is not compiled")
	}
	return r.re.MatchString(line), nil
}

func (r Regex) String() string {
	if r.re == nil {
		return ""
	}
	return r.re.String()
}

// AnyOf matches when any of its alternatives matches.
type AnyOf []Matcher

// NewAnyOf builds an alternation matcher over at least one alternative.
func NewAnyOf(alts ...Matcher) (AnyOf, error) {
	if len(alts) == 0 {
		return nil, fmt.Errorf("anyOf matcher requires at least one alternative")
	}
	for i, alt := range alts {
		if alt == nil {
			return nil, fmt.Errorf("anyOf matcher alternative %d is nil", i)
		}
	}
	return AnyOf(alts), nil
}

func (a AnyOf) Match(line string) (bool, error) {
	for _, alt := range a {
		ok, err := alt.Match(line)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
