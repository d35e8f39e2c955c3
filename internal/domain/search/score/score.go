// Package score holds the ranking math shared by both retrieval strategies.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Default fusion weights.
const (
	DefaultSemanticWeight = 0.7
	DefaultMetadataWeight = 0.3
)

// Weights are the fusion coefficients. They are not renormalised: a pair that
// does not sum to 1 is a deliberate tuning choice of the caller.
type Weights struct {
	Semantic float64
	Metadata float64
}

// DefaultWeights returns 0.7 semantic / 0.3 metadata.
func DefaultWeights() Weights {
	return Weights{Semantic: DefaultSemanticWeight, Metadata: DefaultMetadataWeight}
}

// Validate checks that both weights lie in [0, 1].
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Semantic > 1 {
		return domain.BadInput("semantic_weight must be between 0 and 1")
	}
	if w.Metadata < 0 || w.Metadata > 1 {
		return domain.BadInput("metadata_weight must be between 0 and 1")
	}
	return nil
}

// Cosine returns dot(a,b)/(|a||b|). A zero-norm operand yields exactly 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrVectorDimMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Metadata is the fraction of terms found as case-insensitive substrings of title.
// No terms means 0.
func Metadata(terms []string, title string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lt := strings.ToLower(title)
	matched := 0
	for _, t := range terms {
		if strings.Contains(lt, strings.ToLower(t)) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// Hybrid fuses the two scores. No clamping.
func Hybrid(semantic, metadata float64, w Weights) float64 {
	return w.Semantic*semantic + w.Metadata*metadata
}
