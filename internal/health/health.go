// Package health implements the online/offline state machine. A target
// starts unknown, and notifications fire exactly once per tri-state change:
// both transitions out of unknown stay silent so process startup never
// produces alert noise.
package health

import (
	"time"

	"github.com/hamed0406/serverwatch/internal/registry"
)

// Transition is the decision for one check outcome: the state edge taken and
// whether it warrants a notification.
type Transition struct {
	From registry.Health
	To   registry.Health

	Notify bool

	// Downtime is meaningful only on an offline -> online edge where the
	// outage start was recorded.
	Downtime    time.Duration
	HasDowntime bool

	// Reason carries the failure text for an offline notification.
	Reason string
}

// Eval maps the previous tri-state and a resolution outcome to a transition.
// It reads the target but leaves mutation to the caller, which applies the
// result through the registry.
//
//	unknown + success -> online,  silent
//	unknown + failure -> offline, silent
//	online  + success -> online,  silent
//	online  + failure -> offline, notify
//	offline + success -> online,  notify (with downtime when recorded)
//	offline + failure -> offline, silent
func Eval(t *registry.Target, err error, now time.Time) Transition {
	tr := Transition{From: t.Online}

	if err == nil {
		tr.To = registry.Online
		if tr.From == registry.Offline {
			tr.Notify = true
			if !t.WentOffline.IsZero() {
				tr.Downtime = now.Sub(t.WentOffline)
				tr.HasDowntime = true
			}
		}
		return tr
	}

	tr.To = registry.Offline
	tr.Reason = err.Error()
	tr.Notify = tr.From == registry.Online
	return tr
}
