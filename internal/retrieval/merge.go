package retrieval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoContextSentinel is the literal context used when retrieval produced
// nothing. Stable across calls; downstream prompts key off it.
const NoContextSentinel = "No relevant context was found in the public notes."

// MergeChunks concatenates primary (heading matches) and secondary (vector
// matches) with primary taking precedence, deduplicating by chunk ID while
// preserving first-seen order. Idempotent under duplicate input.
func MergeChunks(primary, secondary []ContentChunk) []ContentChunk {
	merged := make([]ContentChunk, 0, len(primary)+len(secondary))
	seen := make(map[string]struct{}, len(primary)+len(secondary))

	for _, c := range append(append([]ContentChunk{}, primary...), secondary...) {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}

// RenderContext renders documents then chunks as a numbered source list
// for prompt embedding. Documents are numbered from 1, chunks continue the
// numbering. Returns NoContextSentinel when both inputs are empty.
func RenderContext(docs []DocumentSummary, chunks []ContentChunk) string {
	if len(docs) == 0 && len(chunks) == 0 {
		return NoContextSentinel
	}

	sections := make([]string, 0, len(docs)+len(chunks))
	sections = append(sections, renderDocuments(docs, 1)...)
	sections = append(sections, renderChunks(chunks, len(docs)+1)...)
	return strings.Join(sections, "\n\n")
}

// renderDocuments formats each document as a structured summary, numbered
// sequentially from startIndex. Absent fields are omitted.
func renderDocuments(docs []DocumentSummary, startIndex int) []string {
	sections := make([]string, 0, len(docs))
	for i, doc := range docs {
		lines := []string{fmt.Sprintf("Source %d: %s", startIndex+i, doc.SourceFile)}
		if doc.Title != "" {
			lines = append(lines, "Title: "+doc.Title)
		}
		lines = append(lines, "Type: "+doc.DocType)
		if d := formatDate(doc.DocDate); d != "" {
			lines = append(lines, "Date: "+d)
		}
		if doc.Project != "" {
			lines = append(lines, "Project: "+doc.Project)
		}
		if doc.Status != "" {
			lines = append(lines, "Status: "+doc.Status)
		}
		if doc.Progress != nil {
			lines = append(lines, "Progress: "+strconv.FormatFloat(*doc.Progress, 'f', -1, 64))
		}
		if doc.GoalHorizon != "" {
			lines = append(lines, "Goal horizon: "+doc.GoalHorizon)
		}
		if doc.PeriodStart != nil || doc.PeriodEnd != nil {
			start := formatDate(doc.PeriodStart)
			end := formatDate(doc.PeriodEnd)
			if start == "" {
				start = "?"
			}
			if end == "" {
				end = "?"
			}
			lines = append(lines, "Period: "+start+" to "+end)
		}
		if len(doc.Tags) > 0 {
			lines = append(lines, "Tags: "+strings.Join(doc.Tags, ", "))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return sections
}

// renderChunks formats each chunk as a source label, heading, and raw
// content, numbered sequentially from startIndex.
func renderChunks(chunks []ContentChunk, startIndex int) []string {
	sections := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		heading := "Untitled section"
		if chunk.Heading != "" {
			heading = "# " + chunk.Heading
		}
		sections = append(sections, fmt.Sprintf("Source %d: %s\n%s\n%s",
			startIndex+i, chunk.SourceFile, heading, chunk.Content))
	}
	return sections
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
