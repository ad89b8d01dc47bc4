package qc

import (
	"fmt"
	"strings"
	"time"
)

// VariableSummary holds the globally reduced QC tallies for one observed
// variable.
type VariableSummary struct {
	Name string `json:"name"`

	// Total is the global observation count for this variable: the sum of
	// every partition's local location count.
	Total int64 `json:"total"`

	// Counts holds the global count per reporting category, keyed by the
	// category's stable name. Buckets with zero observations are included so
	// consumers need not special-case absent keys.
	Counts map[string]int64 `json:"counts"`
}

// Count returns the tally for one category.
func (v VariableSummary) Count(c Category) int64 {
	return v.Counts[c.String()]
}

// Summary is the structured result of a QC report: per-variable global
// category counts for one observation type.
type Summary struct {
	Obstype     string            `json:"obstype"`
	GeneratedAt time.Time         `json:"generated_at"`
	Variables   []VariableSummary `json:"variables"`
}

// Render formats the summary in the classic QC report layout: one line per
// non-zero rejection category, then a pass/total line, per variable.
//
//	QC Radiosonde airTemperature: 12 missing values.
//	QC Radiosonde airTemperature: 3 H(x) failed.
//	QC Radiosonde airTemperature: 85 passed out of 100 observations.
func (s Summary) Render() string {
	var b strings.Builder
	for _, v := range s.Variables {
		info := fmt.Sprintf("QC %s %s: ", s.Obstype, v.Name)
		for _, c := range Categories() {
			if c == CategoryPass {
				continue
			}
			if n := v.Count(c); n > 0 {
				fmt.Fprintf(&b, "%s%d %s.\n", info, n, c.Description())
			}
		}
		fmt.Fprintf(&b, "%s%d passed out of %d observations.\n", info, v.Count(CategoryPass), v.Total)
	}
	return b.String()
}
