package services

import (
	"sort"
	"strings"
	"time"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2.1.2006",        // 08.10.2022
	"2 Jan 2006",      // 08 Oct 2022
	"2 January 2006",  // 08 October 2022
	"Jan 2, 2006",     // Oct 08, 2022
	"January 2, 2006", // October 08, 2022
	"2006-1-2",        // 2022-10-08
	"2/1/2006",        // 08/10/2022
	"1/2/2006",        // 10/08/2022
	"2-1-2006",        // 08-10-2022
}

// ParseDocumentDate parses a document date against the accepted layouts.
// Empty or unparsable values return the zero time, which sorts last.
func ParseDocumentDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SortKey is the date a result is ordered by. Failures use the zero time.
func SortKey(r models.DocumentResult) time.Time {
	if !r.IsSuccess() {
		return time.Time{}
	}
	return ParseDocumentDate(r.DateValue())
}

// MergeResults merges batch outputs in batch order. A later entry with an
// existing name replaces the value and keeps the original position.
func MergeResults(batches []*models.ResultSet) *models.ResultSet {
	merged := models.NewResultSet()
	for _, b := range batches {
		merged.Merge(b)
	}
	return merged
}

// SortResults orders results by date, newest first. The sort is stable, so
// equal dates keep their insertion order.
func SortResults(set *models.ResultSet) *models.ResultSet {
	type keyed struct {
		entry models.Entry
		date  time.Time
	}
	entries := set.Entries()
	keys := make([]keyed, len(entries))
	for i, e := range entries {
		keys[i] = keyed{entry: e, date: SortKey(e.Result)}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].date.After(keys[j].date)
	})

	sorted := make([]models.Entry, len(keys))
	for i, k := range keys {
		sorted[i] = k.entry
	}
	return models.ResultSetFromEntries(sorted)
}

// Summarize counts a result set's outcomes.
func Summarize(set *models.ResultSet) models.Summary {
	var s models.Summary
	for _, e := range set.Entries() {
		s.Total++
		if e.Result.IsSuccess() {
			s.Successful++
		}
		if e.Result.IsFinalFailure() {
			s.RetryFailures++
		}
	}
	s.Failed = s.Total - s.Successful
	return s
}

// Aggregate merges, sorts and summarizes the batch outputs of one run.
func Aggregate(batches []*models.ResultSet) *models.OrchestrationResult {
	sorted := SortResults(MergeResults(batches))
	return &models.OrchestrationResult{
		Results: sorted,
		Summary: Summarize(sorted),
	}
}
