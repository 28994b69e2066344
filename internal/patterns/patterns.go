// Package patterns provides the weighted keyword and regex rule sets used for
// fraud scoring and page-type classification. Tables are compiled once and
// immutable; the Library swaps whole tables on model refresh.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"
)

// ahocorasickMinKeywords is the dictionary size below which a plain
// substring scan beats building an automaton
const ahocorasickMinKeywords = 4

// Set is one named group of weighted indicators. Keywords are matched
// case-insensitively as substrings; Regexes are compiled case-insensitive.
type Set struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords,omitempty"`
	Regexes    []string `json:"regexes,omitempty"`
	Weight     float64  `json:"weight"`
	MinMatches int      `json:"min_matches,omitempty"`
}

// SetMatch reports how strongly one set matched a text
type SetMatch struct {
	Set          string   `json:"set"`
	Category     string   `json:"category"`
	Matched      []string `json:"matched"`
	MatchCount   int      `json:"match_count"`
	Total        int      `json:"total"`
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"contribution"`
}

// compiledSet carries the matchers for one set
type compiledSet struct {
	Set
	keywords []string // lowercased
	matcher  *ahocorasick.Matcher
	regexes  []*regexp.Regexp
}

// match counts distinct matched keywords and regexes in the lowercased text.
// Regex matching runs on the original text since patterns are (?i) compiled.
func (cs *compiledSet) match(textLower, text string) (int, []string) {
	count := 0
	var matched []string

	if cs.matcher != nil {
		for _, idx := range cs.matcher.MatchThreadSafe([]byte(textLower)) {
			count++
			matched = append(matched, cs.keywords[idx])
		}
	} else {
		for _, keyword := range cs.keywords {
			if strings.Contains(textLower, keyword) {
				count++
				matched = append(matched, keyword)
			}
		}
	}

	for _, re := range cs.regexes {
		if found := re.FindString(text); found != "" {
			count++
			matched = append(matched, found)
		}
	}

	return count, matched
}

// Table is an immutable compiled collection of fraud and legitimacy sets
type Table struct {
	name    string
	fraud   []compiledSet
	legit   []compiledSet
	builtAt time.Time
}

// Compile builds a table from fraud and legitimacy set definitions.
// Keywords are lowercased; regexes are compiled case-insensitive and a bad
// pattern fails the whole compile rather than being silently dropped.
func Compile(name string, fraudSets, legitSets []Set) (*Table, error) {
	table := &Table{name: name, builtAt: time.Now()}

	var err error
	if table.fraud, err = compileSets(fraudSets); err != nil {
		return nil, fmt.Errorf("compiling fraud sets for table %s: %w", name, err)
	}
	if table.legit, err = compileSets(legitSets); err != nil {
		return nil, fmt.Errorf("compiling legitimacy sets for table %s: %w", name, err)
	}

	return table, nil
}

func compileSets(sets []Set) ([]compiledSet, error) {
	compiled := make([]compiledSet, 0, len(sets))
	for _, set := range sets {
		cs := compiledSet{Set: set}

		cs.keywords = make([]string, len(set.Keywords))
		for i, keyword := range set.Keywords {
			cs.keywords[i] = strings.ToLower(keyword)
		}
		if len(cs.keywords) >= ahocorasickMinKeywords {
			cs.matcher = ahocorasick.NewStringMatcher(cs.keywords)
		}

		for _, pattern := range set.Regexes {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("set %s: bad pattern %q: %w", set.Name, pattern, err)
			}
			cs.regexes = append(cs.regexes, re)
		}

		compiled = append(compiled, cs)
	}
	return compiled, nil
}

// Name identifies the table in results and logs
func (t *Table) Name() string {
	return t.name
}

// BuiltAt reports when the table was compiled
func (t *Table) BuiltAt() time.Time {
	return t.builtAt
}

// FraudSets returns the fraud set definitions for inspection endpoints
func (t *Table) FraudSets() []Set {
	sets := make([]Set, len(t.fraud))
	for i := range t.fraud {
		sets[i] = t.fraud[i].Set
	}
	return sets
}

// LegitSets returns the legitimacy set definitions for inspection endpoints
func (t *Table) LegitSets() []Set {
	sets := make([]Set, len(t.legit))
	for i := range t.legit {
		sets[i] = t.legit[i].Set
	}
	return sets
}

// MatchFraud evaluates every fraud set against the text
func (t *Table) MatchFraud(text string) []SetMatch {
	return matchSets(t.fraud, text)
}

// MatchLegit evaluates every legitimacy set against the text
func (t *Table) MatchLegit(text string) []SetMatch {
	return matchSets(t.legit, text)
}

func matchSets(sets []compiledSet, text string) []SetMatch {
	textLower := strings.ToLower(text)

	var matches []SetMatch
	for i := range sets {
		cs := &sets[i]
		total := len(cs.keywords) + len(cs.regexes)
		if total == 0 {
			continue
		}

		count, matched := cs.match(textLower, text)
		if count == 0 {
			continue
		}
		minMatches := cs.MinMatches
		if minMatches < 1 {
			minMatches = 1
		}
		if count < minMatches {
			continue
		}

		matches = append(matches, SetMatch{
			Set:          cs.Name,
			Category:     cs.Category,
			Matched:      matched,
			MatchCount:   count,
			Total:        total,
			Weight:       cs.Weight,
			Contribution: cs.Weight * float64(count) / float64(total),
		})
	}

	return matches
}
