// Package query extracts intent, limit and metadata attributes from natural-language search text.
package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Intent is the coarse purpose of a query.
type Intent string

// Intent values.
const (
	IntentSearch Intent = "search"
	IntentCount  Intent = "count"
	IntentList   Intent = "list"
)

// Strategy is an advisory classification of how a query is best served.
type Strategy string

// Strategy values.
const (
	StrategyHybrid   Strategy = "hybrid"
	StrategyMetadata Strategy = "metadata"
	StrategySemantic Strategy = "semantic"
)

// Parsed is the structured form of a query. Build it with Parse; treat it as read-only.
type Parsed struct {
	OriginalQuery string   `json:"original_query"`
	Intent        Intent   `json:"intent"`
	Limit         *int     `json:"limit"`
	Attributes    []string `json:"attributes"`
	SearchTerms   []string `json:"search_terms"`
	SemanticQuery string   `json:"semantic_query"`
}

// HasTerms reports whether metadata terms were derived.
func (p Parsed) HasTerms() bool { return len(p.SearchTerms) > 0 }

var (
	countMarkers = []string{"how many", "count", "number of"}
	listMarkers  = []string{"list all", "show all"}

	// Stripped anywhere in the text, not only as a prefix.
	commandPhrases = []string{"show me", "find me", "get me", "give me", "list", "search for"}

	digitLimitRe = regexp.MustCompile(`(\d+)\s*(book|novel|stor|text|work)`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

type numberWord struct {
	word string
	re   *regexp.Regexp
	n    int
}

var numberWords = func() []numberWord {
	words := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	out := make([]numberWord, len(words))
	for i, w := range words {
		out[i] = numberWord{word: w, re: regexp.MustCompile(w + `\s*(book|novel|stor|text|work)`), n: i + 1}
	}
	return out
}()

// Parse never fails: unrecognised input yields intent=search, no limit and no attributes.
func Parse(q string) Parsed {
	lower := strings.ToLower(strings.TrimSpace(q))

	p := Parsed{
		OriginalQuery: q,
		Intent:        parseIntent(lower),
		Limit:         extractLimit(lower),
		Attributes:    []string{},
		SearchTerms:   []string{},
	}

	terms := make(map[string]struct{})
	for _, a := range Attributes {
		if !a.Matches(lower) {
			continue
		}
		p.Attributes = append(p.Attributes, a.Name)
		for _, t := range a.Terms {
			terms[t] = struct{}{}
		}
	}
	for t := range terms {
		p.SearchTerms = append(p.SearchTerms, t)
	}
	sort.Strings(p.SearchTerms)

	p.SemanticQuery = semanticQuery(lower)
	return p
}

// StrategyOf classifies a parsed query. The orchestrator does not branch on it.
func StrategyOf(p Parsed) Strategy {
	switch {
	case len(p.Attributes) > 0 && len(p.SearchTerms) > 0:
		return StrategyHybrid
	case len(p.SearchTerms) > 0:
		return StrategyMetadata
	default:
		return StrategySemantic
	}
}

func parseIntent(lower string) Intent {
	if containsAny(lower, countMarkers) {
		return IntentCount
	}
	if containsAny(lower, listMarkers) {
		return IntentList
	}
	return IntentSearch
}

func extractLimit(lower string) *int {
	if m := digitLimitRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	for _, nw := range numberWords {
		if nw.re.MatchString(lower) {
			n := nw.n
			return &n
		}
	}
	return nil
}

func semanticQuery(lower string) string {
	s := lower
	for _, c := range commandPhrases {
		s = strings.ReplaceAll(s, c, "")
	}
	s = digitsRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
