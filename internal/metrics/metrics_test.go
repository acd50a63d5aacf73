package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ppe-vision/internal/model"
)

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun(model.RunResult{
		MediaKind:         model.MediaVideo,
		Counts:            model.Counts{Total: 3, Violations: 1, Safe: 2},
		ComplianceRatePct: 67,
	})
	m.ObserveRun(model.RunResult{})

	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("video", OutcomeCompleted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("image", OutcomeEmpty)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.detections.WithLabelValues("violation")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.detections.WithLabelValues("compliant")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.complianceRate), 0)
}

func TestObserveCounters(t *testing.T) {
	m := New()

	m.ObserveFailure(model.MediaImage)
	m.ObserveSkipped(2)
	m.ObserveSkipped(0)
	m.ObserveStorageFailure("ledger")
	m.ObserveAlert("sent")
	m.ObserveThroughput(12.5)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("image", OutcomeFailed)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.skippedBoxes), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.storageFailures.WithLabelValues("ledger")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.alerts.WithLabelValues("sent")), 0)
	assert.InDelta(t, 12.5, testutil.ToFloat64(m.framesPerSecond), 0)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRun(model.RunResult{Counts: model.Counts{Total: 1, Violations: 1}})

	path := filepath.Join(t.TempDir(), "ppe.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `ppe_runs_total{media="image",outcome="completed"} 1`)
	assert.Contains(t, string(b), `ppe_detections_total{category="violation"} 1`)
}

func TestWriteTextfile_BadDir(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "ppe.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics: write textfile")
}
