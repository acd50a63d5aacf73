package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ppe-vision/internal/model"
)

func TestClassify_Violations(t *testing.T) {
	for _, label := range []string{"NO_HELMET", "no_helmet", "Violation_mask", "NO-Hardhat", "NO-Safety Vest", "vest violation"} {
		assert.Equal(t, model.CategoryViolation, Classify(label), label)
	}
}

func TestClassify_Compliant(t *testing.T) {
	for _, label := range []string{"Helmet", "Safety_Vest", "Gloves", "Hardhat", ""} {
		assert.Equal(t, model.CategoryCompliant, Classify(label), label)
	}
}

func TestClassify_BroadSubstringRule(t *testing.T) {
	// Any label containing "no" is a violation, including false positives.
	assert.True(t, IsViolation("nose-cover"))
	assert.True(t, IsViolation("Machinery Noise"))
	assert.False(t, IsViolation("Person"))
}

func TestCountViolations(t *testing.T) {
	ds := []model.Detection{{Label: "NO-Mask"}, {Label: "Mask"}, {Label: "violation"}}
	assert.Equal(t, 2, CountViolations(ds))
	assert.Equal(t, 0, CountViolations(nil))
}

func TestFilter_Apply(t *testing.T) {
	ds := []model.Detection{{Label: "NO-Mask"}, {Label: "Mask"}, {Label: "Gloves"}, {Label: "Violation"}}

	assert.Len(t, FilterAll.Apply(ds), 4)

	v := FilterViolations.Apply(ds)
	require.Len(t, v, 2)
	assert.Equal(t, "NO-Mask", v[0].Label)
	assert.Equal(t, "Violation", v[1].Label)

	s := FilterSafe.Apply(ds)
	require.Len(t, s, 2)
	assert.Equal(t, "Mask", s[0].Label)
	assert.Equal(t, "Gloves", s[1].Label)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("Violations")
	require.NoError(t, err)
	assert.Equal(t, FilterViolations, f)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseFilter("everything")
	assert.Error(t, err)
}

func TestDecideEvent(t *testing.T) {
	typ, sev := DecideEvent([]string{"Person", "NO-Hardhat"})
	assert.Equal(t, model.EventPPEViolation, typ)
	assert.Equal(t, model.SeverityHigh, sev)

	typ, sev = DecideEvent([]string{"Person", "NO-Safety Vest"})
	assert.Equal(t, model.EventPPEViolation, typ)
	assert.Equal(t, model.SeverityHigh, sev)

	typ, sev = DecideEvent([]string{"Person", "Hardhat"})
	assert.Equal(t, model.EventNormal, typ)
	assert.Equal(t, model.SeverityLow, sev)

	// Violation labels without a person are not an event.
	typ, _ = DecideEvent([]string{"NO-Hardhat"})
	assert.Equal(t, model.EventNormal, typ)
}

func TestPostprocessors(t *testing.T) {
	ds := []model.Detection{
		{Label: "Person", Confidence: 0.9},
		{Label: "NO-Hardhat", Confidence: 0.2},
		{Label: "machinery", Confidence: 0.7},
		{Label: "Gloves", Confidence: 0.5},
	}

	assert.Len(t, NewScoreFilter(0)(ds), 4)
	assert.Len(t, NewScoreFilter(0.5)(ds), 3)
	assert.Len(t, NewLabelFilter()(ds), 4)

	out := Chain(NewLabelFilter("Person", "machinery"), NewScoreFilter(0.3))(ds)
	require.Len(t, out, 1)
	assert.Equal(t, "Gloves", out[0].Label)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Labels([]model.Detection{{Label: "a"}, {Label: "b"}}))
}

func TestTrigger(t *testing.T) {
	ds := []model.Detection{
		{Label: "Person", Confidence: 0.9},
		{Label: "NO-Safety Vest", Confidence: 0.6},
		{Label: "NO-Hardhat", Confidence: 0.8},
	}
	d, ok := Trigger(ds)
	require.True(t, ok)
	assert.Equal(t, "NO-Hardhat", d.Label)

	d, ok = Trigger(ds[:2])
	require.True(t, ok)
	assert.Equal(t, "NO-Safety Vest", d.Label)

	_, ok = Trigger(ds[:1])
	assert.False(t, ok)
}
