// Package monitor drives the per-target check path: resolve an endpoint,
// feed the outcome through the health state machine, diff membership, and
// hand notification requests to the notifier. All mutation of a target
// happens synchronously inside one check invocation.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/serverwatch/internal/health"
	"github.com/hamed0406/serverwatch/internal/members"
	"github.com/hamed0406/serverwatch/internal/notify"
	"github.com/hamed0406/serverwatch/internal/registry"
	"github.com/hamed0406/serverwatch/internal/resolve"
)

type Monitor struct {
	Reg      *registry.Registry
	Resolver *resolve.Resolver
	Notifier notify.Notifier
	Logger   *zap.Logger

	now func() time.Time

	mu      sync.Mutex
	running map[string]bool
}

func New(reg *registry.Registry, res *resolve.Resolver, n notify.Notifier, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		Reg:      reg,
		Resolver: res,
		Notifier: n,
		Logger:   logger,
		now:      time.Now,
		running:  make(map[string]bool),
	}
}

// CheckHealth runs one health check for the named target: authoritative
// resolution, then the state machine. Probe failures are a normal offline
// outcome, not an error; only an unknown name errors.
func (m *Monitor) CheckHealth(ctx context.Context, name string) error {
	t, err := m.Reg.Get(name)
	if err != nil {
		return err
	}

	status, probeErr := m.Resolver.Authoritative(ctx, t)
	tr := health.Eval(t, probeErr, m.now())

	if tr.To == registry.Online {
		if err := m.Reg.MarkOnline(name, &status); err != nil {
			return err
		}
	} else {
		if err := m.Reg.MarkOffline(name, tr.Reason); err != nil {
			return err
		}
	}

	m.Logger.Debug("health check",
		zap.String("target", name),
		zap.Stringer("from", tr.From),
		zap.Stringer("to", tr.To),
		zap.Bool("notify", tr.Notify),
	)

	if !tr.Notify {
		return nil
	}

	switch tr.To {
	case registry.Online:
		m.Logger.Info("target recovered",
			zap.String("target", name),
			zap.String("endpoint", t.Active),
			zap.Duration("downtime", tr.Downtime),
		)
		title, text := notify.OnlineMessage(name, status, tr.Downtime, tr.HasDowntime)
		m.send(ctx, name, title, text)
	case registry.Offline:
		m.Logger.Warn("target went offline",
			zap.String("target", name),
			zap.String("reason", tr.Reason),
		)
		title, text := notify.OfflineMessage(name, tr.Reason)
		m.send(ctx, name, title, text)
	}
	return nil
}

// CheckMembers runs one membership poll using cached resolution. Transitions
// belong to the health check, so a failed poll is only logged. A hidden
// member list skips the diff entirely: hiding cannot be told apart from
// everyone having left, and diffing it would fabricate departures.
func (m *Monitor) CheckMembers(ctx context.Context, name string) error {
	t, err := m.Reg.Get(name)
	if err != nil {
		return err
	}

	status, probeErr := m.Resolver.Cached(ctx, t)
	if probeErr != nil {
		m.Logger.Debug("membership poll failed",
			zap.String("target", name),
			zap.Error(probeErr),
		)
		return nil
	}
	if err := m.Reg.RecordStatus(name, &status); err != nil {
		return err
	}

	if status.MembersHidden {
		m.Logger.Debug("member list hidden, diff skipped",
			zap.String("target", name),
			zap.Int("member_count", status.MemberCount),
		)
		return nil
	}

	// First successful poll seeds the baseline; already-present members are
	// not arrivals.
	if !t.Seeded {
		members.Update(t, status.Members)
		t.Seeded = true
		m.Logger.Info("membership baseline seeded",
			zap.String("target", name),
			zap.Int("members", len(status.Members)),
		)
		return nil
	}

	joined := members.Joined(t, status.Members)
	left := members.Left(t, status.Members)
	members.Update(t, status.Members)

	if len(left) > 0 {
		m.Logger.Info("members left",
			zap.String("target", name),
			zap.Strings("names", left.Names()),
		)
	}
	if len(joined) > 0 {
		names := joined.Names()
		m.Logger.Info("members joined",
			zap.String("target", name),
			zap.Strings("names", names),
		)
		title, text := notify.JoinedMessage(name, names, status)
		m.send(ctx, name, title, text)
	}
	return nil
}

// Seed establishes a baseline for every target at startup without
// notifications: a restart must not announce recoveries or greet members who
// were already online.
func (m *Monitor) Seed(ctx context.Context) {
	for _, name := range m.Reg.Names() {
		t, err := m.Reg.Get(name)
		if err != nil {
			continue
		}
		status, probeErr := m.Resolver.Authoritative(ctx, t)
		if probeErr != nil {
			_ = m.Reg.MarkOffline(name, probeErr.Error())
			m.Logger.Warn("initial check failed",
				zap.String("target", name),
				zap.Error(probeErr),
			)
			continue
		}
		_ = m.Reg.MarkOnline(name, &status)
		if !status.MembersHidden {
			members.Update(t, status.Members)
			t.Seeded = true
		}
		m.Logger.Info("initial check passed",
			zap.String("target", name),
			zap.String("endpoint", t.Active),
			zap.Int("members", status.MemberCount),
		)
	}
}

func (m *Monitor) send(ctx context.Context, target, title, text string) {
	if m.Notifier == nil {
		return
	}
	if err := m.Notifier.Send(ctx, title, text); err != nil {
		m.Logger.Warn("notification failed",
			zap.String("target", target),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}
