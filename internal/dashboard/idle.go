package dashboard

import (
	"sync"
	"time"
)

// Interaction is a kind of user activity that resets the idle clock.
type Interaction string

const (
	Click     Interaction = "click"
	Keypress  Interaction = "keypress"
	Scroll    Interaction = "scroll"
	MouseMove Interaction = "mousemove"
)

// Interactions lists every kind that counts as activity.
var Interactions = []Interaction{Click, Keypress, Scroll, MouseMove}

// ParseInteraction maps an event name to an Interaction.
func ParseInteraction(name string) (Interaction, bool) {
	for _, i := range Interactions {
		if string(i) == name {
			return i, true
		}
	}
	return "", false
}

// IdleTracker records the time of the last user interaction.
// It starts "touched" at creation time.
type IdleTracker struct {
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewIdleTracker creates a tracker. A nil clock means time.Now.
func NewIdleTracker(now func() time.Time) *IdleTracker {
	if now == nil {
		now = time.Now
	}
	return &IdleTracker{now: now, last: now()}
}

// Touch records an interaction. Unknown kinds are ignored.
func (t *IdleTracker) Touch(kind Interaction) bool {
	if _, ok := ParseInteraction(string(kind)); !ok {
		return false
	}
	t.mu.Lock()
	t.last = t.now()
	t.mu.Unlock()
	return true
}

// LastInteraction returns when the user was last active.
func (t *IdleTracker) LastInteraction() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// IdleFor returns the time elapsed since the last interaction.
func (t *IdleTracker) IdleFor() time.Duration {
	return t.now().Sub(t.LastInteraction())
}
