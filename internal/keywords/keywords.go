// Package keywords classifies papers by the organisations they mention.
package keywords

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ResearchBriefing/internal/config"
)

// ErrInvalidPattern wraps every keyword that fails to compile.
var ErrInvalidPattern = errors.New("invalid keyword pattern")

type rule struct {
	display string
	re      *regexp.Regexp
}

// Matcher holds compiled keyword rules in configuration order.
type Matcher struct {
	rules []rule
}

// New compiles keyword entries. Plain patterns are escaped and wrapped in word boundaries;
// rawRegex entries are used verbatim. Matching is case-insensitive unless caseSensitive is set.
func New(entries []config.KeywordConfig) (*Matcher, error) {
	m := &Matcher{rules: make([]rule, 0, len(entries))}
	for _, e := range entries {
		if e.Label == "" || e.Pattern == "" {
			return nil, fmt.Errorf("%w: entry needs label and pattern (label=%q)", ErrInvalidPattern, e.Label)
		}

		expr := e.Pattern
		if !e.RawRegex {
			expr = `\b` + regexp.QuoteMeta(e.Pattern) + `\b`
		}
		if !e.CaseSensitive {
			expr = `(?i)` + expr
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%q): %v", ErrInvalidPattern, e.Label, e.Pattern, err)
		}

		display := e.DisplayAs
		if display == "" {
			display = e.Label
		}
		m.rules = append(m.rules, rule{display: display, re: re})
	}
	return m, nil
}

// Match returns the display labels found in the paper text, in rule order without duplicates.
func (m *Matcher) Match(title, summary string, authors []string) []string {
	if m == nil || len(m.rules) == 0 {
		return nil
	}

	text := title + " " + summary + " " + strings.Join(authors, " ")
	var (
		labels []string
		seen   = map[string]struct{}{}
	)
	for _, r := range m.rules {
		if _, ok := seen[r.display]; ok {
			continue
		}
		if r.re.MatchString(text) {
			seen[r.display] = struct{}{}
			labels = append(labels, r.display)
		}
	}
	return labels
}

// Len reports the number of compiled rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}
