// Package cli provides output formatting for the intelhub command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (%s search)\n",
		response.TotalCount, response.ProcessingTimeMs, response.SearchType)
	if response.Fallback {
		fmt.Fprintln(w, "Note: semantic search unavailable, results from keyword fallback")
	}
	fmt.Fprintln(w)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
}

func writeOneResult(w io.Writer, rank int, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%d. [%s] %s\n", rank, result.ContentType, result.ContentID)
	if result.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", result.Title)
	}
	fmt.Fprintf(w, "Scores: %s\n", FormatScores(result))
	if len(result.Metadata) > 0 {
		if authors := result.Metadata["authors"]; authors != "" {
			fmt.Fprintf(w, "Authors: %s\n", authors)
		}
		if source := result.Metadata["source"]; source != "" {
			fmt.Fprintf(w, "Source: %s\n", source)
		}
	}
	if result.Content != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Content, 200))
	}
	fmt.Fprintln(w)
}

// FormatScores renders only the score fields the search mode produced.
// A nil score field means "not computed" and is omitted entirely.
func FormatScores(result *models.SearchResult) string {
	out := ""
	if result.CombinedScore != nil {
		out += fmt.Sprintf("combined=%.4f ", *result.CombinedScore)
	}
	if result.Similarity != nil {
		out += fmt.Sprintf("similarity=%.4f ", *result.Similarity)
	}
	if result.KeywordRank != nil {
		out += fmt.Sprintf("keyword=%.4f ", *result.KeywordRank)
	}
	if out == "" {
		return "(none)"
	}
	return out[:len(out)-1]
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// WriteStats writes the embedding coverage report to w.
func WriteStats(w io.Writer, stats *models.EmbeddingStats, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(w, "content items:     %d\n", stats.TotalContent)
	fmt.Fprintf(w, "embeddings:        %d\n", stats.TotalEmbeddings)
	fmt.Fprintln(w)
	for _, ct := range models.AllContentTypes() {
		fmt.Fprintf(w, "%-16s %d embedded (%s coverage)\n",
			string(ct)+":", stats.EmbeddingsByType[ct], stats.Coverage[ct])
	}
	return nil
}
