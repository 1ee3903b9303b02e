package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/serverwatch/internal/domain"
)

// Health is the tri-state online flag. Unknown only exists before the first
// probe completes and is never re-entered.
type Health int

const (
	Unknown Health = iota
	Online
	Offline
)

func (h Health) String() string {
	switch h {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Target is the runtime state of one monitored service. It is owned by the
// Registry and mutated only from the single check path for its name; the
// status API reads it under the registry lock.
type Target struct {
	Name      string
	Kind      string   // backend flavor, selects the prober
	Endpoints []string // priority order, first is primary

	Active      string // last working endpoint, empty before first success
	Online      Health
	LastOnline  time.Time
	WentOffline time.Time
	LastStatus  *domain.ServiceStatus
	LastError   string
	PrevMembers domain.Set

	// Seeded flips after the first successful membership poll, so the seed
	// set is never announced as joins.
	Seeded bool
}

// Registry owns the name -> Target map. Accessors are thin and deterministic,
// with no I/O, so every state transition stays centralized and auditable.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]*Target
	order   []string
	now     func() time.Time
}

type TargetConfig struct {
	Name      string
	Kind      string
	Endpoints []string
}

func New(cfgs []TargetConfig) (*Registry, error) {
	r := &Registry{
		targets: make(map[string]*Target, len(cfgs)),
		now:     time.Now,
	}
	for _, c := range cfgs {
		if c.Name == "" {
			return nil, fmt.Errorf("registry: target with empty name")
		}
		if len(c.Endpoints) == 0 {
			return nil, fmt.Errorf("registry: target %q has no endpoints", c.Name)
		}
		if _, dup := r.targets[c.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate target %q", c.Name)
		}
		r.targets[c.Name] = &Target{
			Name:        c.Name,
			Kind:        c.Kind,
			Endpoints:   append([]string(nil), c.Endpoints...),
			Online:      Unknown,
			PrevMembers: domain.Set{},
		}
		r.order = append(r.order, c.Name)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get fails loudly on an unknown name: that is a wiring bug between config
// and registry, not a runtime condition to skip over.
func (r *Registry) Get(name string) (*Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("registry: unknown target %q", name)
	}
	return t, nil
}

func (r *Registry) All() []*Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Target, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.targets[name])
	}
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SetActive records the endpoint the resolver settled on. The endpoint must
// be one of the target's configured endpoints.
func (r *Registry) SetActive(name, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("registry: unknown target %q", name)
	}
	found := false
	for _, ep := range t.Endpoints {
		if ep == endpoint {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("registry: endpoint %q not configured for target %q", endpoint, name)
	}
	t.Active = endpoint
	return nil
}

// MarkOnline records a confirmed-online target; WentOffline and the retained
// failure reason are cleared the instant online is confirmed.
func (r *Registry) MarkOnline(name string, status *domain.ServiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("registry: unknown target %q", name)
	}
	t.Online = Online
	t.LastOnline = r.now()
	t.WentOffline = time.Time{}
	t.LastError = ""
	if status != nil {
		t.LastStatus = status
	}
	return nil
}

// RecordStatus refreshes the last seen status without a health transition,
// for the frequent membership polls between health checks.
func (r *Registry) RecordStatus(name string, status *domain.ServiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("registry: unknown target %q", name)
	}
	if status != nil {
		t.LastStatus = status
	}
	return nil
}

// MarkOffline records a failed check. WentOffline is stamped only on entry
// into the offline state, so downtime measures from the first failure.
func (r *Registry) MarkOffline(name, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("registry: unknown target %q", name)
	}
	if t.Online != Offline {
		t.WentOffline = r.now()
	}
	t.Online = Offline
	t.LastError = reason
	return nil
}

// Reset clears runtime state while preserving name and endpoints.
func (r *Registry) Reset(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("registry: unknown target %q", name)
	}
	t.Active = ""
	t.Online = Unknown
	t.LastOnline = time.Time{}
	t.WentOffline = time.Time{}
	t.LastStatus = nil
	t.LastError = ""
	t.PrevMembers = domain.Set{}
	t.Seeded = false
	return nil
}

// Downtime reports how long the target has been offline. Only valid while
// the target is offline with a recorded WentOffline.
func (r *Registry) Downtime(name string) (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	if !ok || t.Online != Offline || t.WentOffline.IsZero() {
		return 0, false
	}
	return r.now().Sub(t.WentOffline), true
}

// Snapshot is a consistent copy of one target's state for readers outside the
// check path, such as the status API.
type Snapshot struct {
	Name        string                `json:"name"`
	Kind        string                `json:"kind,omitempty"`
	Endpoints   []string              `json:"endpoints"`
	Active      string                `json:"active_endpoint,omitempty"`
	Online      string                `json:"online"`
	LastOnline  *time.Time            `json:"last_online,omitempty"`
	WentOffline *time.Time            `json:"went_offline,omitempty"`
	Downtime    *float64              `json:"downtime_seconds,omitempty"`
	LastStatus  *domain.ServiceStatus `json:"last_status,omitempty"`
	LastError   string                `json:"last_error,omitempty"`
}

func (r *Registry) Snapshot(name string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	if !ok {
		return Snapshot{}, fmt.Errorf("registry: unknown target %q", name)
	}
	return r.snapshotLocked(t), nil
}

func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.snapshotLocked(r.targets[name]))
	}
	return out
}

func (r *Registry) snapshotLocked(t *Target) Snapshot {
	s := Snapshot{
		Name:      t.Name,
		Kind:      t.Kind,
		Endpoints: append([]string(nil), t.Endpoints...),
		Active:    t.Active,
		Online:    t.Online.String(),
		LastError: t.LastError,
	}
	if !t.LastOnline.IsZero() {
		ts := t.LastOnline
		s.LastOnline = &ts
	}
	if !t.WentOffline.IsZero() {
		ts := t.WentOffline
		s.WentOffline = &ts
	}
	if t.Online == Offline && !t.WentOffline.IsZero() {
		d := r.now().Sub(t.WentOffline).Seconds()
		s.Downtime = &d
	}
	if t.LastStatus != nil {
		st := *t.LastStatus
		st.Members = st.Members.Copy()
		s.LastStatus = &st
	}
	return s
}
