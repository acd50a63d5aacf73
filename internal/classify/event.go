package classify

import (
	"github.com/samber/lo"

	"github.com/sells-group/ppe-vision/internal/model"
)

// Labels used by the PPE event rule. These are exact model class names.
const (
	LabelPerson       = "Person"
	LabelNoHardhat    = "NO-Hardhat"
	LabelNoSafetyVest = "NO-Safety Vest"
)

// DecideEvent grades a run's labels. A person seen together with a missing
// hardhat or vest is a high-severity PPE violation; anything else is normal.
func DecideEvent(labels []string) (model.EventType, model.Severity) {
	if !lo.Contains(labels, LabelPerson) {
		return model.EventNormal, model.SeverityLow
	}
	if lo.Contains(labels, LabelNoHardhat) || lo.Contains(labels, LabelNoSafetyVest) {
		return model.EventPPEViolation, model.SeverityHigh
	}
	return model.EventNormal, model.SeverityLow
}

// Labels extracts the label of every detection in order.
func Labels(detections []model.Detection) []string {
	return lo.Map(detections, func(d model.Detection, _ int) string {
		return d.Label
	})
}

// Trigger returns the detection that made a run a PPE violation: the first
// missing hardhat, else the first missing vest.
func Trigger(detections []model.Detection) (model.Detection, bool) {
	for _, label := range []string{LabelNoHardhat, LabelNoSafetyVest} {
		if d, ok := lo.Find(detections, func(d model.Detection) bool { return d.Label == label }); ok {
			return d, true
		}
	}
	return model.Detection{}, false
}
