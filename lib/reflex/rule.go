// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package reflex

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// MatcherKind selects how a rule's pattern is interpreted. The set is
// closed: unknown strings are rejected at parse time rather than
// silently treated as one of the kinds.
type MatcherKind string

const (
	// KindRegex matches the pattern as a Go regular expression
	// against free text (command lines, request payloads).
	KindRegex MatcherKind = "regex"

	// KindGlob matches the pattern as a doublestar glob against a
	// path ("**" crosses directory separators).
	KindGlob MatcherKind = "glob"
)

// ParseMatcherKind converts a string to a MatcherKind, rejecting
// anything outside the closed set.
func ParseMatcherKind(s string) (MatcherKind, error) {
	switch MatcherKind(s) {
	case KindRegex, KindGlob:
		return MatcherKind(s), nil
	}
	return "", fmt.Errorf("reflex: unknown matcher kind %q", s)
}

// Response is what a firing rule does to the request.
type Response string

const (
	// ResponseBlock denies the request outright.
	ResponseBlock Response = "block"

	// ResponseWarn records the match for audit but lets the request
	// proceed.
	ResponseWarn Response = "warn"
)

// ParseResponse converts a string to a Response, rejecting anything
// outside the closed set.
func ParseResponse(s string) (Response, error) {
	switch Response(s) {
	case ResponseBlock, ResponseWarn:
		return Response(s), nil
	}
	return "", fmt.Errorf("reflex: unknown response %q", s)
}

// Rule is one reflex pattern. Rules are pure policy data: they carry
// no reference to capabilities or principals, and a firing block rule
// vetoes a request regardless of what grants the caller holds.
type Rule struct {
	// ID uniquely identifies the rule within the engine
	// (e.g. "shell/rm-root"). Registration without force fails on
	// collision.
	ID string

	// Kind selects regex or glob interpretation of Pattern.
	Kind MatcherKind

	// Pattern is the regex or glob source text.
	Pattern string

	// Response is block or warn.
	Response Response

	// Message explains the match to the caller and the audit trail.
	Message string

	// Priority orders evaluation, highest first. 100 means
	// unambiguously dangerous (always block); 70–90 is contextual.
	// Ties are broken by registration order.
	Priority int

	// Enabled rules participate in Check; disabled rules are kept
	// but skipped.
	Enabled bool
}

// compiledRule is the engine's internal form: the caller's Rule plus
// the compiled matcher and registration sequence.
type compiledRule struct {
	Rule
	regex   *regexp.Regexp // nil for glob rules
	seq     int
	builtin bool
}

// compile validates the rule and prepares its matcher.
func compile(rule Rule) (*compiledRule, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("reflex: rule has empty ID")
	}
	compiled := &compiledRule{Rule: rule}

	switch rule.Kind {
	case KindRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("reflex: rule %s: compiling regex: %w", rule.ID, err)
		}
		compiled.regex = re
	case KindGlob:
		if !doublestar.ValidatePattern(rule.Pattern) {
			return nil, fmt.Errorf("reflex: rule %s: invalid glob pattern %q", rule.ID, rule.Pattern)
		}
	default:
		return nil, fmt.Errorf("reflex: rule %s: unknown matcher kind %q", rule.ID, rule.Kind)
	}

	switch rule.Response {
	case ResponseBlock, ResponseWarn:
	default:
		return nil, fmt.Errorf("reflex: rule %s: unknown response %q", rule.ID, rule.Response)
	}

	return compiled, nil
}

// matches reports whether the rule fires on the input.
func (r *compiledRule) matches(input string) bool {
	if r.regex != nil {
		return r.regex.MatchString(input)
	}
	// Pattern validity was checked at compile time, so the error
	// return cannot trigger here.
	matched, _ := doublestar.Match(r.Pattern, input)
	return matched
}
