// Package aisearch is a Go client for the aisearch HTTP API.
//
//	client, _ := aisearch.New("http://localhost:8080")
//	res, _ := client.Search("recent open access papers about coral reefs").
//	    Limit(5).
//	    Summaries().
//	    Do(ctx)
//	for _, h := range res.Results {
//	    fmt.Println(h.Title, h.Score)
//	}
//
// Errors returned by the service are *APIError values; use errors.Is with
// the exported sentinels to branch on them.
package aisearch
