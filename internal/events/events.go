// Package events provides the per-component event stream used to wire the
// tracker, activity monitor and break scheduler together without any of them
// holding a reference to another.
package events

import (
	"sync"

	"github.com/akruglov/chronometer/internal/models"
)

// Type identifies an event kind.
type Type string

const (
	SessionStarted Type = "session_started"
	SessionResumed Type = "session_resumed"
	SessionPaused  Type = "session_paused"
	SessionStopped Type = "session_stopped"
	TimeUpdated    Type = "time_updated"

	ActivityChanged Type = "activity_changed"
	IdleDetected    Type = "idle_detected"
	UserReturned    Type = "user_returned"

	ShortBreakDue Type = "short_break_due"
	LongBreakDue  Type = "long_break_due"
	BreakReminder Type = "break_reminder"
)

// Event carries one component notification. Only the fields relevant to the
// event's Type are set.
type Event struct {
	Type Type

	Session *models.Session // SessionStarted, SessionStopped
	Elapsed int             // TimeUpdated

	AppName     string // ActivityChanged
	WindowTitle string // ActivityChanged
	IdleSeconds int    // IdleDetected

	BreakKind       string // BreakReminder: "short" or "long"
	DurationMinutes int    // BreakReminder
}

// Bus is a synchronous fan-out of events to subscribers. Publish calls every
// subscriber in subscription order on the publishing goroutine, so events
// from one component are always observed in emission order.
type Bus struct {
	mu   sync.Mutex
	subs []func(Event)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every future event.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers ev to all subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
