package health

import (
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/serverwatch/internal/registry"
)

var (
	now  = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fail = errors.New("dial tcp: connection refused")
)

func target(state registry.Health) *registry.Target {
	return &registry.Target{Name: "t", Endpoints: []string{"a"}, Online: state}
}

func TestEval_TransitionTable(t *testing.T) {
	cases := []struct {
		name   string
		from   registry.Health
		err    error
		wantTo registry.Health
		notify bool
	}{
		{"unknown success", registry.Unknown, nil, registry.Online, false},
		{"unknown failure", registry.Unknown, fail, registry.Offline, false},
		{"online success", registry.Online, nil, registry.Online, false},
		{"online failure", registry.Online, fail, registry.Offline, true},
		{"offline success", registry.Offline, nil, registry.Online, true},
		{"offline failure", registry.Offline, fail, registry.Offline, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := Eval(target(c.from), c.err, now)
			if tr.From != c.from || tr.To != c.wantTo {
				t.Fatalf("edge %s->%s, want %s->%s", tr.From, tr.To, c.from, c.wantTo)
			}
			if tr.Notify != c.notify {
				t.Fatalf("notify = %v, want %v", tr.Notify, c.notify)
			}
		})
	}
}

func TestEval_RepeatedOutcomesNeverRenotify(t *testing.T) {
	tg := target(registry.Online)
	for i := 0; i < 3; i++ {
		if tr := Eval(tg, nil, now); tr.Notify {
			t.Fatal("online->online must stay silent")
		}
	}
	tg = target(registry.Offline)
	for i := 0; i < 3; i++ {
		if tr := Eval(tg, fail, now); tr.Notify {
			t.Fatal("offline->offline must stay silent")
		}
	}
}

func TestEval_DowntimeComputed(t *testing.T) {
	tg := target(registry.Offline)
	tg.WentOffline = now.Add(-7 * time.Minute)

	tr := Eval(tg, nil, now)
	if !tr.Notify {
		t.Fatal("recovery must notify")
	}
	if !tr.HasDowntime || tr.Downtime != 7*time.Minute {
		t.Fatalf("want 7m downtime, got %v (has=%v)", tr.Downtime, tr.HasDowntime)
	}
}

func TestEval_DowntimeOmittedWhenNeverRecorded(t *testing.T) {
	// offline without a WentOffline stamp: outage start was never observed
	tg := target(registry.Offline)

	tr := Eval(tg, nil, now)
	if !tr.Notify {
		t.Fatal("recovery must notify")
	}
	if tr.HasDowntime {
		t.Fatal("downtime must be omitted when the outage start was never recorded")
	}
}

func TestEval_FailureCarriesReason(t *testing.T) {
	tr := Eval(target(registry.Online), fail, now)
	if tr.Reason != fail.Error() {
		t.Fatalf("want reason %q, got %q", fail.Error(), tr.Reason)
	}
}
