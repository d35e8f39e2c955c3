package aisearch

import (
	"context"
	"net/http"
)

type searchBody struct {
	Q              string   `json:"q"`
	Limit          *int     `json:"limit,omitempty"`
	Summaries      bool     `json:"summaries,omitempty"`
	Passages       *bool    `json:"passages,omitempty"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty"`
	MetadataWeight *float64 `json:"metadata_weight,omitempty"`
}

// SearchBuilder is a fluent builder for POST /search.
type SearchBuilder struct {
	c    *Client
	body searchBody
}

// Limit sets the maximum number of results. The server caps it.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.body.Limit = &n
	return b
}

// Summaries asks for summaries of long descriptions.
func (b *SearchBuilder) Summaries() *SearchBuilder {
	b.body.Summaries = true
	return b
}

// Passages overrides the server default for attaching passage hits.
func (b *SearchBuilder) Passages(include bool) *SearchBuilder {
	b.body.Passages = &include
	return b
}

// Weights overrides the hybrid weights for this request.
func (b *SearchBuilder) Weights(semantic, metadata float64) *SearchBuilder {
	b.body.SemanticWeight = &semantic
	b.body.MetadataWeight = &metadata
	return b
}

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (res *SearchResult, err error) {
	done := b.c.obs.track("search")
	defer func() { done(err) }()

	res = &SearchResult{}
	if err = b.c.do(ctx, http.MethodPost, "/search", nil, b.body, res); err != nil {
		return nil, err
	}
	return res, nil
}
