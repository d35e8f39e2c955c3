package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	dombatch "github.com/kailas-cloud/aisearch/internal/domain/batch"
	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/domain/status"
	"github.com/kailas-cloud/aisearch/internal/usecase/explain"
	"github.com/kailas-cloud/aisearch/internal/usecase/passage"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

func statusColor(s status.Status) *color.Color {
	switch s {
	case status.Ready:
		return good
	case status.Degraded:
		return warn
	}
	return bad
}

func printStatus(w io.Writer, r status.Report) {
	heading.Fprintln(w, "aisearch status")
	fmt.Fprint(w, "  status:        ")
	statusColor(r.Status).Fprintln(w, r.Status)
	fmt.Fprintf(w, "  mode:          %s\n", r.Mode)
	fmt.Fprintf(w, "  model loaded:  %t\n", r.ModelLoaded)
	if r.Backend != "" {
		fmt.Fprintf(w, "  backend:       %s %s\n", r.Backend, r.BackendVersion)
	}
	fmt.Fprintf(w, "  knn available: %t\n", r.KNNAvailable)
	if r.EmbeddingsLoaded != nil {
		fmt.Fprintf(w, "  table:         loaded=%t count=%d file=%s\n",
			*r.EmbeddingsLoaded, *r.EmbeddingsCount, r.EmbeddingsFile)
	}
	if r.Error != "" {
		fmt.Fprint(w, "  error:         ")
		bad.Fprintln(w, r.Error)
	}

	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := r.Checks[name]
		c := good
		switch res {
		case status.CheckError:
			c = bad
		case status.CheckSkipped:
			c = faint
		}
		fmt.Fprintf(w, "  check %-9s ", name)
		c.Fprintln(w, res)
	}
}

func printSearch(w io.Writer, res *result.Search) {
	heading.Fprintf(w, "Query: %q\n", res.Query)
	fmt.Fprintf(w, "  intent:     %s\n", res.Parsed.Intent)
	fmt.Fprintf(w, "  strategy:   %s\n", res.Parsed.Strategy)
	fmt.Fprintf(w, "  attributes: %s\n", joinOrDash(res.Parsed.Attributes))
	fmt.Fprintf(w, "  terms:      %s\n", joinOrDash(res.Parsed.SearchTerms))
	fmt.Fprintf(w, "  semantic:   %q\n", res.Parsed.SemanticQuery)
	fmt.Fprintln(w)

	if res.Total == 0 {
		warn.Fprintln(w, "No results")
		return
	}
	good.Fprintf(w, "%d results\n", res.Total)
	for i, h := range res.Results {
		printHit(w, i+1, h)
	}
	for _, p := range res.Passages {
		faint.Fprintf(w, "  passage %s (%.3f): %s\n", p.ChunkID, p.Score, clip(p.Text, 120))
	}
}

func printHit(w io.Writer, n int, h result.Hit) {
	fmt.Fprintf(w, "%2d. ", n)
	heading.Fprint(w, h.Title)
	fmt.Fprintf(w, " [%s]\n", h.RecordID)
	fmt.Fprintf(w, "    %s, %s, %s\n", strings.Join(h.Creators, "; "), h.PublicationDate, h.ResourceType)
	fmt.Fprintf(w, "    score %.4f", h.Score)
	if h.SemanticScore != nil && h.MetadataScore != nil {
		faint.Fprintf(w, "  (semantic %.4f, metadata %.4f)", *h.SemanticScore, *h.MetadataScore)
	}
	fmt.Fprintln(w)
	if h.Summary != nil {
		fmt.Fprintf(w, "    %s\n", clip(*h.Summary, 200))
	}
}

func printSimilar(w io.Writer, res *result.Similar) {
	heading.Fprintf(w, "Similar to %s", res.RecordID)
	if res.SourceTitle != "" {
		fmt.Fprintf(w, " %q", res.SourceTitle)
	}
	fmt.Fprintln(w)
	if res.Total == 0 {
		warn.Fprintln(w, "No results")
		return
	}
	for i, h := range res.Similar {
		printHit(w, i+1, h)
	}
}

func printExplain(w io.Writer, r *explain.Report) {
	heading.Fprintf(w, "%s vs %s\n", r.RecordA, r.RecordB)
	fmt.Fprintf(w, "  passages: %d x %d, %d pairs\n", r.PassagesA, r.PassagesB, r.Aggregate.PairCount)
	fmt.Fprintf(w, "  mean top %.4f  median %.4f  min %.4f  max %.4f\n",
		r.Aggregate.MeanTop, r.Aggregate.Median, r.Aggregate.Min, r.Aggregate.Max)

	for i, p := range r.TopPairs {
		good.Fprintf(w, "%2d. %.4f", i+1, p.Score)
		fmt.Fprintf(w, "  a#%d / b#%d\n", p.A.Index, p.B.Index)
		faint.Fprintf(w, "    A: %s\n    B: %s\n", clip(p.A.Text, 160), clip(p.B.Text, 160))
	}

	if len(r.Themes) == 0 {
		return
	}
	terms := make([]string, len(r.Themes))
	for i, t := range r.Themes {
		terms[i] = fmt.Sprintf("%s (%.3f)", t.Term, t.Weight)
	}
	fmt.Fprintf(w, "  themes: %s\n", strings.Join(terms, ", "))
}

func printSummary(w io.Writer, s dombatch.Summary) {
	c := good
	if s.Errors > 0 {
		c = warn
	}
	c.Fprintf(w, "Embedded %d of %d records (%d errors)\n", s.Generated, s.TotalRecords, s.Errors)
	if s.FilePath != "" {
		fmt.Fprintf(w, "  table: %s (%.2f MB)\n", s.FilePath, s.FileSizeMB)
	}
	printFailures(w, s.Failures)
}

func printJobReport(w io.Writer, r passage.Report) {
	c := good
	if !r.Complete {
		c = warn
	}
	c.Fprintf(w, "Passages: %d batches, %d processed, %d indexed, %d errors\n",
		r.Batches, r.Processed, r.Indexed, r.Errors)
	if r.Complete {
		fmt.Fprintf(w, "  complete at line %d of %d\n", r.NextOffset, r.TotalLines)
		return
	}
	fmt.Fprintf(w, "  stopped at line %d; rerun with --resume or --offset %d\n", r.NextOffset, r.NextOffset)
}

func printFailures(w io.Writer, failures []dombatch.Failure) {
	const maxShown = 20
	for i, f := range failures {
		if i == maxShown {
			faint.Fprintf(w, "  ... and %d more\n", len(failures)-maxShown)
			return
		}
		bad.Fprintf(w, "  %s: %s\n", f.ID, f.Error)
	}
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
