package model

import "time"

// Category is the binary classification derived from a detection label.
type Category string

const (
	CategoryViolation Category = "violation"
	CategoryCompliant Category = "compliant"
)

// Run status strings shown in history views and exports.
const (
	StatusViolations = "⚠️ Violations Found"
	StatusAllClear   = "✓ All Clear"
)

// Counts holds per-category detection counts for one run.
type Counts struct {
	Total      int `json:"total" yaml:"total"`
	Violations int `json:"violations" yaml:"violations"`
	Safe       int `json:"safe" yaml:"safe"`
}

// RunResult is the aggregation of one completed analysis run.
type RunResult struct {
	ID                string      `json:"id"`
	Timestamp         time.Time   `json:"timestamp"`
	SourceName        string      `json:"source_name"`
	MediaKind         MediaKind   `json:"media_kind,omitempty"`
	Detections        []Detection `json:"detections"`
	Counts            Counts      `json:"counts"`
	ComplianceRatePct int         `json:"compliance_rate_pct"`
	TotalFrames       int         `json:"total_frames,omitempty"`
}

// Empty reports whether the run completed with zero detections.
func (r RunResult) Empty() bool {
	return r.Counts.Total == 0
}

// Status derives the history status string from the violation count.
func (r RunResult) Status() string {
	if r.Counts.Violations > 0 {
		return StatusViolations
	}
	return StatusAllClear
}

// AggregatedLabelSummary collapses every detection sharing a label into one row.
type AggregatedLabelSummary struct {
	Label                    string   `json:"label" yaml:"label"`
	Category                 Category `json:"category" yaml:"category"`
	RepresentativeConfidence float64  `json:"representative_confidence" yaml:"representative_confidence"`
	OccurrenceCount          int      `json:"occurrence_count" yaml:"occurrence_count"`
	Frames                   []int    `json:"frames" yaml:"frames"`
}
