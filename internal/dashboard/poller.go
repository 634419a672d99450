package dashboard

import (
	"context"
	"time"
)

// Page is the capability a Poller drives.
type Page interface {
	Visible() bool
	Running(ctx context.Context) (bool, error)
	Reload(ctx context.Context) error
}

// Poller applies a RefreshPolicy to a Page on every interval tick.
type Poller struct {
	Policy  RefreshPolicy
	Tracker *IdleTracker
	Page    Page
	View    View
}

// Run polls until ctx is done, the policy says stop, or the page fails.
// It returns nil when polling was never active or stopped by the policy.
func (p *Poller) Run(ctx context.Context) error {
	running, err := p.Page.Running(ctx)
	if err != nil {
		return err
	}
	if !p.Policy.Active(p.View, running) {
		return nil
	}

	interval := p.Policy.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		running, err := p.Page.Running(ctx)
		if err != nil {
			return err
		}
		d := p.Policy.Decide(p.View, p.Page.Visible(), p.Tracker.IdleFor(), running)
		if d.Reload {
			if err := p.Page.Reload(ctx); err != nil {
				return err
			}
		}
		if d.Stop {
			return nil
		}
	}
}
