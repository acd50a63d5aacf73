package classify

import (
	"github.com/samber/lo"

	"github.com/sells-group/ppe-vision/internal/model"
)

// Postprocessor filters an incoming list of detections before aggregation.
type Postprocessor func([]model.Detection) []model.Detection

// NewScoreFilter drops detections below a confidence threshold. A threshold
// of zero keeps everything.
func NewScoreFilter(minConfidence float64) Postprocessor {
	return func(in []model.Detection) []model.Detection {
		if minConfidence <= 0 {
			return in
		}
		return lo.Filter(in, func(d model.Detection, _ int) bool {
			return d.Confidence >= minConfidence
		})
	}
}

// NewLabelFilter drops detections whose label is in the ignore list, e.g.
// "Person" or "machinery" which are context, not PPE.
func NewLabelFilter(ignore ...string) Postprocessor {
	return func(in []model.Detection) []model.Detection {
		if len(ignore) == 0 {
			return in
		}
		return lo.Reject(in, func(d model.Detection, _ int) bool {
			return lo.Contains(ignore, d.Label)
		})
	}
}

// Chain applies postprocessors in order.
func Chain(ps ...Postprocessor) Postprocessor {
	return func(in []model.Detection) []model.Detection {
		out := in
		for _, p := range ps {
			if p != nil {
				out = p(out)
			}
		}
		return out
	}
}
