package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Intervals configures the two polling cadences.
type Intervals struct {
	Health  time.Duration
	Members time.Duration
}

// Run drives periodic health checks and membership polls until ctx is
// cancelled. Checks for different targets run independently; a tick for a
// target whose previous check is still in flight is dropped, never queued,
// so a hung endpoint cannot build a backlog.
func (m *Monitor) Run(ctx context.Context, iv Intervals) {
	healthTick := time.NewTicker(iv.Health)
	defer healthTick.Stop()
	membersTick := time.NewTicker(iv.Members)
	defer membersTick.Stop()

	m.Logger.Info("monitor started",
		zap.Int("targets", len(m.Reg.Names())),
		zap.Duration("health_interval", iv.Health),
		zap.Duration("members_interval", iv.Members),
	)

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor stopped")
			return
		case <-healthTick.C:
			m.dispatch(ctx, "health", m.CheckHealth)
		case <-membersTick.C:
			m.dispatch(ctx, "members", m.CheckMembers)
		}
	}
}

func (m *Monitor) dispatch(ctx context.Context, kind string, check func(context.Context, string) error) {
	for _, name := range m.Reg.Names() {
		if !m.acquire(name) {
			m.Logger.Debug("previous check still running, tick dropped",
				zap.String("target", name),
				zap.String("kind", kind),
			)
			continue
		}
		go func() {
			defer m.release(name)
			if err := check(ctx, name); err != nil {
				m.Logger.Error("check error",
					zap.String("target", name),
					zap.String("kind", kind),
					zap.Error(err),
				)
			}
		}()
	}
}

// acquire claims the per-target in-flight slot. Health and membership checks
// share it: same-target checks never overlap.
func (m *Monitor) acquire(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[name] {
		return false
	}
	m.running[name] = true
	return true
}

func (m *Monitor) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[name] = false
}
