// Package classify holds the single violation rule shared by aggregation,
// overlay colouring and history counts.
package classify

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/sells-group/ppe-vision/internal/model"
)

// Label fragments that mark a violation. Matching is a case-insensitive
// substring test, so "no" also matches labels such as "nose-cover". Keep it:
// stored history counts depend on this exact rule.
var violationMarkers = []string{"no", "violation"}

// IsViolation reports whether a label denotes a PPE violation.
func IsViolation(label string) bool {
	folded := cases.Fold().String(label)
	for _, m := range violationMarkers {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}

// Classify maps a label to its category.
func Classify(label string) model.Category {
	if IsViolation(label) {
		return model.CategoryViolation
	}
	return model.CategoryCompliant
}

// CountViolations counts detections whose label classifies as a violation.
func CountViolations(detections []model.Detection) int {
	return lo.CountBy(detections, func(d model.Detection) bool {
		return IsViolation(d.Label)
	})
}

// Filter selects a subset of detections by category.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterViolations Filter = "violations"
	FilterSafe       Filter = "safe"
)

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(s)); f {
	case FilterAll, FilterViolations, FilterSafe:
		return f, nil
	case "":
		return FilterAll, nil
	default:
		return "", eris.Errorf("classify: unknown filter %q", s)
	}
}

// Apply returns the detections matching the filter, preserving order.
func (f Filter) Apply(detections []model.Detection) []model.Detection {
	switch f {
	case FilterViolations:
		return lo.Filter(detections, func(d model.Detection, _ int) bool {
			return IsViolation(d.Label)
		})
	case FilterSafe:
		return lo.Filter(detections, func(d model.Detection, _ int) bool {
			return !IsViolation(d.Label)
		})
	default:
		return detections
	}
}
