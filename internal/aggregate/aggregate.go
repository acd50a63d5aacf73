// Package aggregate turns the raw detection list of one run into counts, a
// compliance rate and a per-label summary.
package aggregate

import (
	"math"
	"slices"
	"time"

	"github.com/sells-group/ppe-vision/internal/classify"
	"github.com/sells-group/ppe-vision/internal/model"
)

// RunMeta is run identity supplied by the caller. It is never derived from
// the detections.
type RunMeta struct {
	ID          string
	Timestamp   time.Time
	SourceName  string
	MediaKind   model.MediaKind
	TotalFrames int
}

// Count tallies detections per category.
func Count(detections []model.Detection) model.Counts {
	violations := classify.CountViolations(detections)
	return model.Counts{
		Total:      len(detections),
		Violations: violations,
		Safe:       len(detections) - violations,
	}
}

// ComplianceRate is the rounded percentage of safe detections, or 0 for an
// empty run.
func ComplianceRate(c model.Counts) int {
	if c.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(c.Safe) / float64(c.Total) * 100))
}

// Aggregate builds the RunResult for a completed run. The detection slice is
// copied so the result does not alias caller memory.
func Aggregate(detections []model.Detection, meta RunMeta) model.RunResult {
	counts := Count(detections)
	ds := slices.Clone(detections)
	if ds == nil {
		ds = []model.Detection{}
	}
	return model.RunResult{
		ID:                meta.ID,
		Timestamp:         meta.Timestamp,
		SourceName:        meta.SourceName,
		MediaKind:         meta.MediaKind,
		Detections:        ds,
		Counts:            counts,
		ComplianceRatePct: ComplianceRate(counts),
		TotalFrames:       meta.TotalFrames,
	}
}

// Summarize groups detections by exact label, in first-seen order. The first
// detection of a label fixes its representative confidence; frames collect
// every contributing frame index, duplicates included.
func Summarize(detections []model.Detection) []model.AggregatedLabelSummary {
	index := make(map[string]int)
	out := make([]model.AggregatedLabelSummary, 0)

	for _, d := range detections {
		i, ok := index[d.Label]
		if !ok {
			i = len(out)
			index[d.Label] = i
			out = append(out, model.AggregatedLabelSummary{
				Label:                    d.Label,
				Category:                 classify.Classify(d.Label),
				RepresentativeConfidence: d.Confidence,
				Frames:                   []int{},
			})
		}
		out[i].OccurrenceCount++
		out[i].Frames = append(out[i].Frames, d.FrameIndex())
	}
	return out
}

// Throughput returns processed frames per second rounded to two decimals.
func Throughput(frames int, elapsed time.Duration) float64 {
	if frames <= 0 || elapsed <= 0 {
		return 0
	}
	fps := float64(frames) / elapsed.Seconds()
	return math.Round(fps*100) / 100
}

// Progress returns processed/total as a percentage clamped to [0,100].
func Progress(processed, total int) float64 {
	if total <= 0 || processed <= 0 {
		return 0
	}
	return math.Min(float64(processed)/float64(total)*100, 100)
}
