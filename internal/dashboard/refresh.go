package dashboard

import "time"

const (
	DefaultRefreshInterval = 10 * time.Second
	DefaultIdleThreshold   = 8 * time.Second
)

// View identifies the page being refreshed.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewStatus    View = "status"
	ViewOther     View = "other"
)

// ViewFromPath maps a request path to a View.
func ViewFromPath(path string) View {
	switch path {
	case "/":
		return ViewDashboard
	case "/status":
		return ViewStatus
	default:
		return ViewOther
	}
}

// ParseView accepts "dashboard", "status" or a request path.
func ParseView(s string) View {
	switch View(s) {
	case ViewDashboard, ViewStatus:
		return View(s)
	}
	return ViewFromPath(s)
}

// Decision is the outcome of one refresh tick.
type Decision struct {
	Reload bool `json:"reload"`
	Stop   bool `json:"stop"`
}

// RefreshPolicy decides when a page reloads itself.
type RefreshPolicy struct {
	Interval      time.Duration
	IdleThreshold time.Duration
}

// DefaultRefreshPolicy returns the 10s interval / 8s idle policy.
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{Interval: DefaultRefreshInterval, IdleThreshold: DefaultIdleThreshold}
}

// Active reports whether polling starts at all on a page.
func (p RefreshPolicy) Active(view View, running bool) bool {
	return running || view == ViewDashboard || view == ViewStatus
}

// Decide evaluates one tick.
// Only dashboard and status refresh, and only while visible and idle longer than the threshold.
// The status view reloads on every such tick. The dashboard reloads while a job runs,
// then reloads one final time and stops.
func (p RefreshPolicy) Decide(view View, visible bool, idleFor time.Duration, running bool) Decision {
	if view != ViewDashboard && view != ViewStatus {
		return Decision{}
	}
	if !visible || idleFor <= p.IdleThreshold {
		return Decision{}
	}
	if running || view == ViewStatus {
		return Decision{Reload: true}
	}
	return Decision{Reload: true, Stop: true}
}
