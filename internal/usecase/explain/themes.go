package explain

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minDocFreq drops terms seen in a single document.
const minDocFreq = 2

// Theme is a term shared across the top passage pairs.
type Theme struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// ExtractThemes ranks unigrams and bigrams by their mean TF-IDF weight across
// docs. Each document vector is L2-normalised; terms found in fewer than two
// documents are dropped. Fewer than two documents give no themes.
func ExtractThemes(docs []string, topK int) []Theme {
	n := len(docs)
	if n < minDocFreq || topK <= 0 {
		return []Theme{}
	}

	counts := make([]map[string]int, n)
	df := map[string]int{}
	for i, d := range docs {
		counts[i] = termCounts(tokenize(d))
		for t := range counts[i] {
			df[t]++
		}
	}

	idf := make(map[string]float64, len(df))
	for t, f := range df {
		if f < minDocFreq {
			continue
		}
		idf[t] = math.Log(float64(1+n)/float64(1+f)) + 1
	}
	if len(idf) == 0 {
		return []Theme{}
	}

	sums := make(map[string]float64, len(idf))
	for _, tc := range counts {
		w := make(map[string]float64, len(tc))
		var norm float64
		for t, c := range tc {
			v, ok := idf[t]
			if !ok {
				continue
			}
			w[t] = float64(c) * v
			norm += w[t] * w[t]
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for t, v := range w {
			sums[t] += v / norm
		}
	}

	themes := make([]Theme, 0, len(sums))
	for t, s := range sums {
		themes = append(themes, Theme{Term: t, Weight: s / float64(n)})
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Weight != themes[j].Weight {
			return themes[i].Weight > themes[j].Weight
		}
		return themes[i].Term < themes[j].Term
	})
	if len(themes) > topK {
		themes = themes[:topK]
	}
	return themes
}

// tokenize lowercases text and keeps letter runs of three or more that are not stopwords.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// termCounts counts unigrams and adjacent bigrams.
func termCounts(tokens []string) map[string]int {
	c := make(map[string]int, len(tokens)*2)
	for i, t := range tokens {
		c[t]++
		if i > 0 {
			c[tokens[i-1]+" "+t]++
		}
	}
	return c
}
