// Package session drives one analysis run at a time from submission to
// history, event log and alert.
package session

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ppe-vision/internal/aggregate"
	"github.com/sells-group/ppe-vision/internal/classify"
	"github.com/sells-group/ppe-vision/internal/ledger"
	"github.com/sells-group/ppe-vision/internal/metrics"
	"github.com/sells-group/ppe-vision/internal/model"
	"github.com/sells-group/ppe-vision/internal/notify"
	"github.com/sells-group/ppe-vision/internal/store"
)

var (
	// ErrTransportFailure means the inference call failed or reported failure.
	// Nothing is recorded for such a run.
	ErrTransportFailure = eris.New("inference transport failure")

	// ErrRunInFlight is returned by Begin while another run is outstanding.
	ErrRunInFlight = eris.New("run already in flight")

	// ErrNoRun is returned by Complete when Begin was not called.
	ErrNoRun = eris.New("no run in flight")
)

// Deps are the collaborators of a Session. Ledger and Gate are required.
type Deps struct {
	Ledger      *ledger.Ledger
	Gate        *notify.Gate
	Events      store.EventRecorder
	Metrics     *metrics.Metrics
	Postprocess classify.Postprocessor
	Clock       clock.Clock
}

// Analysis is everything a completed run produced.
type Analysis struct {
	Run             model.RunResult                `json:"run" yaml:"run"`
	Summary         []model.AggregatedLabelSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	EventType       model.EventType                `json:"event_type" yaml:"event_type"`
	Severity        model.Severity                 `json:"severity" yaml:"severity"`
	Event           *model.Event                   `json:"event,omitempty" yaml:"event,omitempty"`
	Alert           *notify.Alert                  `json:"alert,omitempty" yaml:"alert,omitempty"`
	FramesPerSecond float64                        `json:"frames_per_second,omitempty" yaml:"frames_per_second,omitempty"`

	// StorageErr is set when history or the event log could not be
	// persisted. The run itself still succeeded.
	StorageErr error `json:"-" yaml:"-"`
}

type pendingRun struct {
	id      string
	source  string
	kind    model.MediaKind
	started time.Time
}

// Session accepts at most one outstanding run. It is not safe for
// concurrent use.
type Session struct {
	deps    Deps
	pending *pendingRun
}

// New returns a Session.
func New(d Deps) *Session {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Postprocess == nil {
		d.Postprocess = classify.Chain()
	}
	return &Session{deps: d}
}

// Begin starts a run for a named source and returns its id.
func (s *Session) Begin(source string, kind model.MediaKind) (string, error) {
	if s.pending != nil {
		return "", eris.Wrapf(ErrRunInFlight, "session: run %s", s.pending.id)
	}
	if kind == "" {
		kind = model.MediaImage
	}
	s.pending = &pendingRun{
		id:      uuid.NewString(),
		source:  source,
		kind:    kind,
		started: s.deps.Clock.Now(),
	}
	return s.pending.id, nil
}

// InFlight reports whether a run is outstanding.
func (s *Session) InFlight() bool {
	return s.pending != nil
}

// Fail ends the outstanding run as a transport failure.
func (s *Session) Fail(cause error) error {
	id, kind := "", model.MediaImage
	if s.pending != nil {
		id, kind = s.pending.id, s.pending.kind
	}
	s.pending = nil

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveFailure(kind)
	}
	zap.L().Error("session: run failed", zap.String("run_id", id), zap.Error(cause))
	return eris.Wrapf(ErrTransportFailure, "session: run %s: %v", id, cause)
}

// Complete finishes the outstanding run with the inference payload. A
// payload that reports failure is handled like Fail. Storage problems are
// reported in Analysis.StorageErr and never abort the run.
func (s *Session) Complete(ctx context.Context, payload model.InferencePayload) (*Analysis, error) {
	p := s.pending
	if p == nil {
		return nil, ErrNoRun
	}
	if payload.Failed() {
		msg := payload.Error
		if msg == "" {
			msg = "service reported success=false"
		}
		return nil, s.Fail(eris.New(msg))
	}
	s.pending = nil

	now := s.deps.Clock.Now()
	log := zap.L().With(zap.String("run_id", p.id), zap.String("source", p.source))

	// The event rule looks at everything the model saw, including context
	// classes the postprocessors drop.
	eventType, severity := classify.DecideEvent(classify.Labels(payload.Detections))

	detections := s.deps.Postprocess(payload.Detections)
	run := aggregate.Aggregate(detections, aggregate.RunMeta{
		ID:          p.id,
		Timestamp:   now,
		SourceName:  p.source,
		MediaKind:   p.kind,
		TotalFrames: payload.Frames(),
	})

	a := &Analysis{Run: run, EventType: eventType, Severity: severity}
	if p.kind == model.MediaVideo {
		a.Summary = aggregate.Summarize(detections)
		a.FramesPerSecond = aggregate.Throughput(run.TotalFrames, now.Sub(p.started))
	}

	if err := s.deps.Ledger.Append(ctx, run); err != nil {
		a.StorageErr = err
		s.storageFailure("ledger")
		log.Warn("session: history not persisted", zap.Error(err))
	}

	if eventType == model.EventPPEViolation {
		a.Event = s.newEvent(p, run, payload.Detections, now)
		if err := s.recordEvent(ctx, *a.Event); err != nil {
			if a.StorageErr == nil {
				a.StorageErr = err
			}
			s.storageFailure("events")
			log.Warn("session: event not recorded", zap.Error(err))
		}
	}

	a.Alert = s.deps.Gate.OnRunCompleted(run.Counts.Violations, payload.NotificationDelivered())

	if m := s.deps.Metrics; m != nil {
		m.ObserveRun(run)
		if a.Alert != nil {
			m.ObserveAlert(string(a.Alert.Variant))
		}
		if p.kind == model.MediaVideo {
			m.ObserveThroughput(a.FramesPerSecond)
		}
	}

	log.Info("session: run completed",
		zap.Int("total", run.Counts.Total),
		zap.Int("violations", run.Counts.Violations),
		zap.Int("compliance_rate_pct", run.ComplianceRatePct),
		zap.String("event_type", string(eventType)),
	)
	return a, nil
}

func (s *Session) newEvent(p *pendingRun, run model.RunResult, raw []model.Detection, now time.Time) *model.Event {
	e := &model.Event{
		ID:        uuid.NewString(),
		RunID:     run.ID,
		Type:      model.EventPPEViolation,
		Severity:  model.SeverityHigh,
		Source:    p.source,
		CreatedAt: now,
	}
	if d, ok := classify.Trigger(raw); ok {
		e.Label = d.Label
		e.Confidence = d.Confidence
	}
	return e
}

func (s *Session) recordEvent(ctx context.Context, e model.Event) error {
	if s.deps.Events == nil {
		return nil
	}
	if err := s.deps.Events.RecordEvents(ctx, []model.Event{e}); err != nil {
		return eris.Wrapf(store.ErrStorageUnavailable, "session: record event: %v", err)
	}
	return nil
}

func (s *Session) storageFailure(component string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveStorageFailure(component)
	}
}
