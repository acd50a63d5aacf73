// Package notify decides when a completed run raises a violation alert and
// keeps that alert visible for a fixed window.
package notify

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultWindow is how long an alert stays visible.
	DefaultWindow = 5 * time.Second

	// LogCapacity bounds the notification log.
	LogCapacity = 20
)

// Variant tells whether the delivery channel confirmed the notification.
type Variant string

const (
	VariantSent    Variant = "sent"
	VariantSending Variant = "sending"
)

// Alert is one raised violation notification.
type Alert struct {
	ID         string    `json:"id" yaml:"id"`
	Message    string    `json:"message" yaml:"message"`
	Variant    Variant   `json:"variant" yaml:"variant"`
	Violations int       `json:"violations" yaml:"violations"`
	RaisedAt   time.Time `json:"raised_at" yaml:"raised_at"`
	ExpiresAt  time.Time `json:"expires_at" yaml:"expires_at"`
}

// Message returns the alert text for a violation count and delivery state.
func Message(violations int, v Variant) string {
	if v == VariantSent {
		return fmt.Sprintf("%d violation(s) detected! SMS notification sent.", violations)
	}
	return fmt.Sprintf("%d violation(s) detected! Sending SMS notification...", violations)
}

// Gate holds at most one active alert. A new alert supersedes the pending
// one and cancels its deadline.
type Gate struct {
	mu      sync.Mutex
	clock   clock.Clock
	window  time.Duration
	current *Alert
	timer   *clock.Timer
	expired chan Alert
	log     []Alert
}

// NewGate returns a Gate on clk. A non-positive window uses DefaultWindow.
func NewGate(clk clock.Clock, window time.Duration) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{
		clock:   clk,
		window:  window,
		expired: make(chan Alert, 1),
	}
}

// OnRunCompleted raises an alert when violations > 0 and returns it. A run
// without violations returns nil and leaves any active alert to expire on
// its own. A nil or false delivered flag yields the "sending" variant.
func (g *Gate) OnRunCompleted(violations int, delivered *bool) *Alert {
	if violations <= 0 {
		return nil
	}

	variant := VariantSending
	if delivered != nil && *delivered {
		variant = VariantSent
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	a := Alert{
		ID:         uuid.NewString(),
		Message:    Message(violations, variant),
		Variant:    variant,
		Violations: violations,
		RaisedAt:   now,
		ExpiresAt:  now.Add(g.window),
	}

	g.stopTimer()
	g.current = &a
	id := a.ID
	g.timer = g.clock.AfterFunc(g.window, func() { g.expire(id) })

	g.log = append([]Alert{a}, g.log...)
	if len(g.log) > LogCapacity {
		g.log = g.log[:LogCapacity]
	}

	zap.L().Info("notify: alert raised",
		zap.String("alert_id", a.ID),
		zap.Int("violations", violations),
		zap.String("variant", string(variant)),
	)
	out := a
	return &out
}

// Current returns the active alert, if any. An alert is active until it is
// dismissed or its deadline passes.
func (g *Gate) Current() (Alert, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil || !g.clock.Now().Before(g.current.ExpiresAt) {
		return Alert{}, false
	}
	return *g.current, true
}

// Dismiss hides the active alert early. It reports whether one was active.
func (g *Gate) Dismiss() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	active := g.current != nil && g.clock.Now().Before(g.current.ExpiresAt)
	g.stopTimer()
	g.current = nil
	return active
}

// Expired delivers alerts whose window elapsed without being dismissed or
// superseded. Only the most recent unread expiry is buffered.
func (g *Gate) Expired() <-chan Alert {
	return g.expired
}

// Log returns the notification log, newest first.
func (g *Gate) Log() []Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.log)
}

// Forget removes an entry from the log. It does not affect the active alert.
func (g *Gate) Forget(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := slices.IndexFunc(g.log, func(a Alert) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	g.log = slices.Delete(g.log, i, i+1)
	return true
}

func (g *Gate) expire(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil || g.current.ID != id {
		return
	}
	a := *g.current
	g.current = nil
	g.timer = nil

	select {
	case g.expired <- a:
	default:
		// Replace a stale unread expiry with the newer one.
		select {
		case <-g.expired:
		default:
		}
		g.expired <- a
	}
}

// stopTimer must be called with g.mu held.
func (g *Gate) stopTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
