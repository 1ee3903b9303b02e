package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func jellyfinHandler(t *testing.T, sessions string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != "key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/System/Info":
			w.Write([]byte(`{"ServerName":"den","Version":"10.9.2"}`))
		case "/Sessions":
			w.Write([]byte(sessions))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}
}

func TestJellyfin_ProbeSuccess(t *testing.T) {
	s := httptest.NewServer(jellyfinHandler(t, `[{"UserName":"amir"},{"UserName":"sara"},{"UserName":""}]`))
	defer s.Close()

	j := NewJellyfin("key", 2*time.Second)
	status, err := j.Probe(context.Background(), s.URL)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !status.Online {
		t.Fatal("want online")
	}
	if !strings.Contains(status.Descriptor, "10.9.2") || !strings.Contains(status.Descriptor, "den") {
		t.Fatalf("descriptor missing version/name: %q", status.Descriptor)
	}
	if status.MemberCount != 2 || !status.Members.Has("amir") || !status.Members.Has("sara") {
		t.Fatalf("want 2 session members, got %d %v", status.MemberCount, status.Members.Names())
	}
	if status.MembersHidden {
		t.Fatal("enumerated sessions must not be hidden")
	}
	if status.Latency <= 0 {
		t.Fatalf("want positive latency, got %v", status.Latency)
	}
}

func TestJellyfin_SessionsFailureDegrades(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/System/Info" {
			w.Write([]byte(`{"ServerName":"den","Version":"10.9.2"}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer s.Close()

	j := NewJellyfin("key", 2*time.Second)
	status, err := j.Probe(context.Background(), s.URL)
	if err != nil {
		t.Fatalf("sessions failure must not fail the probe: %v", err)
	}
	if !status.MembersHidden {
		t.Fatal("unenumerable sessions must be reported hidden, not empty")
	}
	if status.MemberCount != 0 || len(status.Members) != 0 {
		t.Fatalf("want no members, got %v", status.Members.Names())
	}
}

func TestJellyfin_Unauthorized(t *testing.T) {
	s := httptest.NewServer(jellyfinHandler(t, `[]`))
	defer s.Close()

	j := NewJellyfin("wrong", 2*time.Second)
	_, err := j.Probe(context.Background(), s.URL)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("want *Error, got %T", err)
	}
	if perr.Kind != KindProtocol {
		t.Fatalf("want protocol kind, got %s", perr.Kind)
	}
}

func TestJellyfin_MalformedJSON(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ServerName":`))
	}))
	defer s.Close()

	j := NewJellyfin("key", 2*time.Second)
	_, err := j.Probe(context.Background(), s.URL)

	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindProtocol {
		t.Fatalf("want protocol error, got %v", err)
	}
}

func TestJellyfin_Timeout(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer s.Close()

	j := NewJellyfin("key", 50*time.Millisecond)
	_, err := j.Probe(context.Background(), s.URL)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("want *Error, got %T", err)
	}
	if perr.Kind != KindTimeout {
		t.Fatalf("want timeout kind, got %s", perr.Kind)
	}
}

func TestJellyfin_ConnectionRefused(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := s.URL
	s.Close() // nothing listening anymore

	j := NewJellyfin("key", 500*time.Millisecond)
	_, err := j.Probe(context.Background(), url)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("want *Error, got %T", err)
	}
	if perr.Kind != KindConnection {
		t.Fatalf("want connection kind, got %s", perr.Kind)
	}
}

func TestJellyfin_ReleaseDropsClient(t *testing.T) {
	j := NewJellyfin("key", time.Second)
	_ = j.client("http://a:8096")
	if len(j.clients) != 1 {
		t.Fatalf("want 1 cached client, got %d", len(j.clients))
	}
	j.Release("http://a:8096")
	if len(j.clients) != 0 {
		t.Fatalf("want released client removed, got %d", len(j.clients))
	}
	// releasing an unknown endpoint is a no-op
	j.Release("http://b:8096")
}
