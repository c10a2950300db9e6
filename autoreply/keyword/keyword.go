// Package keyword implements rule-based relevance matching over post text:
// an ordered set of keyword rules scored by priority, plus a blacklist that
// suppresses a post no matter what the keyword rules say.
package keyword

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// MatchType selects how a rule pattern is tested against post text.
type MatchType string

const (
	// MatchExact requires the pattern to appear as whole tokens, never as a
	// fragment of a longer word ("go" does not hit "going").
	MatchExact MatchType = "exact"
	// MatchPartial is a case-insensitive substring test.
	MatchPartial MatchType = "partial"
	// MatchRegex compiles the pattern as a case-insensitive regular
	// expression. Compilation happens during Compile, never at match time.
	MatchRegex MatchType = "regex"
)

// Scope selects which part of the post a rule is tested against.
type Scope string

const (
	ScopeTitle Scope = "title"
	ScopeBody  Scope = "body"
	ScopeBoth  Scope = "both"
)

// Rule is a single keyword or blacklist rule. Rules are immutable once
// compiled; configured order matters only to break priority ties (first
// rule wins). Priority and Category are ignored for blacklist entries.
type Rule struct {
	Pattern   string    `json:"pattern"`
	MatchType MatchType `json:"matchType,omitempty"`
	Scope     Scope     `json:"scope,omitempty"`
	Priority  int       `json:"priority,omitempty"`
	Category  string    `json:"category,omitempty"`

	re     *regexp.Regexp
	tokens []string
	needle string
}

// Verdict is the outcome of evaluating one post against the keyword rules.
type Verdict struct {
	Matched  bool
	Category string
	Priority int
	Pattern  string
}

// RuleSet is the full matching configuration, loaded once at startup and
// compiled before first use.
type RuleSet struct {
	Keywords  []Rule `json:"keywords"`
	Blacklist []Rule `json:"blacklist"`
}

// Compile validates every rule, fills in defaults, and pre-compiles regex
// patterns and token lists. A malformed rule is a configuration error: the
// process refuses to start rather than silently skipping it.
func (s *RuleSet) Compile() error {
	for i := range s.Keywords {
		if err := s.Keywords[i].compile(); err != nil {
			return &ConfigError{List: "keywords", Index: i, Pattern: s.Keywords[i].Pattern, Err: err}
		}
	}
	for i := range s.Blacklist {
		if err := s.Blacklist[i].compile(); err != nil {
			return &ConfigError{List: "blacklist", Index: i, Pattern: s.Blacklist[i].Pattern, Err: err}
		}
	}
	return nil
}

func (r *Rule) compile() error {
	if r.Pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	if r.MatchType == "" {
		r.MatchType = MatchPartial
	}
	if r.Scope == "" {
		r.Scope = ScopeBoth
	}
	if r.Priority < 0 {
		return fmt.Errorf("negative priority %d", r.Priority)
	}
	if r.Priority == 0 {
		r.Priority = 1
	}
	if r.Category == "" {
		r.Category = "general"
	}
	switch r.Scope {
	case ScopeTitle, ScopeBody, ScopeBoth:
	default:
		return fmt.Errorf("unknown scope %q", r.Scope)
	}
	switch r.MatchType {
	case MatchExact:
		r.tokens = TokenizeText(r.Pattern)
		if len(r.tokens) == 0 {
			return fmt.Errorf("pattern has no matchable tokens")
		}
	case MatchPartial:
		r.needle = strings.ToLower(r.Pattern)
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return err
		}
		r.re = re
	default:
		return fmt.Errorf("unknown match type %q", r.MatchType)
	}
	return nil
}

// Evaluate tests every keyword rule against the post text and returns the
// best match: highest priority wins, earliest rule wins a tie. A zero
// Verdict means nothing matched. Pure function; blacklist rules are not
// consulted here (see Blacklisted).
func (s *RuleSet) Evaluate(title, body string) Verdict {
	best := -1
	for i := range s.Keywords {
		if !s.Keywords[i].matches(title, body) {
			continue
		}
		if best < 0 || s.Keywords[i].Priority > s.Keywords[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return Verdict{}
	}
	r := &s.Keywords[best]
	return Verdict{
		Matched:  true,
		Category: r.Category,
		Priority: r.Priority,
		Pattern:  r.Pattern,
	}
}

// Blacklisted reports whether any blacklist rule matches the post text,
// returning the offending pattern for audit logging.
func (s *RuleSet) Blacklisted(title, body string) (string, bool) {
	for i := range s.Blacklist {
		if s.Blacklist[i].matches(title, body) {
			return s.Blacklist[i].Pattern, true
		}
	}
	return "", false
}

func (r *Rule) matches(title, body string) bool {
	switch r.Scope {
	case ScopeTitle:
		return r.matchText(title)
	case ScopeBody:
		return r.matchText(body)
	default:
		return r.matchText(title + " " + body)
	}
}

func (r *Rule) matchText(text string) bool {
	switch r.MatchType {
	case MatchExact:
		return containsTokenRun(TokenizeText(text), r.tokens)
	case MatchRegex:
		return r.re.MatchString(text)
	default:
		return strings.Contains(strings.ToLower(text), r.needle)
	}
}

// containsTokenRun reports whether needle occurs in haystack as a
// consecutive run of whole tokens.
func containsTokenRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	if len(needle) == 1 {
		return slices.Contains(haystack, needle[0])
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

// ConfigError reports a malformed rule discovered while compiling a rule
// set. Fatal at startup; Evaluate never sees an uncompiled rule.
type ConfigError struct {
	List    string
	Index   int
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s rule %d (pattern %q): %v", e.List, e.Index, e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
