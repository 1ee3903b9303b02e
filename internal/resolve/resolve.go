// Package resolve selects a working endpoint for a target out of its ordered
// endpoint list. Authoritative resolution always restarts from the primary so
// a recovered primary is preferred again as soon as it is reachable; cached
// resolution reuses the last working endpoint so cheap frequent polls skip
// the failover ladder while the current endpoint is healthy.
package resolve

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/serverwatch/internal/domain"
	"github.com/hamed0406/serverwatch/internal/probe"
	"github.com/hamed0406/serverwatch/internal/registry"
)

type Resolver struct {
	Reg     *registry.Registry
	Probers map[string]probe.Prober // keyed by target kind
	Logger  *zap.Logger
}

func New(reg *registry.Registry, probers map[string]probe.Prober, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Reg: reg, Probers: probers, Logger: logger}
}

// proberFor errors on an unregistered kind: like an unknown target name,
// that is a wiring bug, not a runtime condition.
func (r *Resolver) proberFor(t *registry.Target) (probe.Prober, error) {
	p, ok := r.Probers[t.Kind]
	if !ok {
		return nil, fmt.Errorf("resolve: no prober registered for kind %q (target %q)", t.Kind, t.Name)
	}
	return p, nil
}

// Authoritative tries the target's endpoints strictly in priority order and
// settles on the first one that answers. On total failure the returned error
// aggregates every per-endpoint failure, and the previously active endpoint
// is kept so display code can still show the last known address.
func (r *Resolver) Authoritative(ctx context.Context, t *registry.Target) (domain.ServiceStatus, error) {
	prober, err := r.proberFor(t)
	if err != nil {
		return domain.ServiceStatus{}, err
	}

	var errs error
	for _, ep := range t.Endpoints {
		r.Logger.Debug("probing endpoint",
			zap.String("target", t.Name),
			zap.String("endpoint", ep),
		)
		status, err := prober.Probe(ctx, ep)
		if err != nil {
			r.Logger.Warn("endpoint failed",
				zap.String("target", t.Name),
				zap.String("endpoint", ep),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
			continue
		}
		if prev := t.Active; prev != "" && prev != ep {
			// Failover switch: drop connection resources bound to the old
			// endpoint before caching the new one.
			if rel, ok := prober.(probe.Releaser); ok {
				rel.Release(prev)
			}
			r.Logger.Info("active endpoint switched",
				zap.String("target", t.Name),
				zap.String("from", prev),
				zap.String("to", ep),
			)
		}
		if err := r.Reg.SetActive(t.Name, ep); err != nil {
			return domain.ServiceStatus{}, err
		}
		return status, nil
	}
	return domain.ServiceStatus{}, &probe.Error{
		Kind:     probe.KindConnection,
		Endpoint: t.Name,
		Err:      fmt.Errorf("all %d endpoints failed: %w", len(t.Endpoints), errs),
	}
}

// Cached probes the active endpoint directly and falls back to Authoritative
// when there is no active endpoint yet or it stopped answering. A cached
// success never reorders anything.
func (r *Resolver) Cached(ctx context.Context, t *registry.Target) (domain.ServiceStatus, error) {
	if t.Active == "" {
		return r.Authoritative(ctx, t)
	}
	prober, err := r.proberFor(t)
	if err != nil {
		return domain.ServiceStatus{}, err
	}
	status, err := prober.Probe(ctx, t.Active)
	if err == nil {
		return status, nil
	}
	r.Logger.Info("cached endpoint failed, resolving from primary",
		zap.String("target", t.Name),
		zap.String("endpoint", t.Active),
		zap.Error(err),
	)
	return r.Authoritative(ctx, t)
}
