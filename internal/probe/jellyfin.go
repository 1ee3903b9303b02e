package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hamed0406/serverwatch/internal/domain"
)

// Jellyfin probes a Jellyfin media server over its HTTP API. One http.Client
// is kept per endpoint so idle connections to an abandoned endpoint can be
// released on failover.
type Jellyfin struct {
	APIKey  string
	Timeout time.Duration

	mu      sync.Mutex
	clients map[string]*http.Client
}

func NewJellyfin(apiKey string, timeout time.Duration) *Jellyfin {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Jellyfin{
		APIKey:  apiKey,
		Timeout: timeout,
		clients: make(map[string]*http.Client),
	}
}

type systemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
}

type session struct {
	UserName string `json:"UserName"`
}

func (j *Jellyfin) Probe(ctx context.Context, endpoint string) (domain.ServiceStatus, error) {
	base := strings.TrimRight(endpoint, "/")
	client := j.client(endpoint)

	start := time.Now()

	var info systemInfo
	if err := j.getJSON(ctx, client, endpoint, base+"/System/Info", &info); err != nil {
		return domain.ServiceStatus{}, err
	}
	latency := time.Since(start)

	status := domain.ServiceStatus{
		Online:     true,
		Members:    domain.Set{},
		Descriptor: fmt.Sprintf("Jellyfin %s (%s)", info.Version, info.ServerName),
		Latency:    latency,
	}

	// Active sessions fill the membership fields. A sessions failure is not a
	// probe failure: the server already answered /System/Info. It does mean the
	// member list could not be enumerated, so it is reported hidden rather than
	// empty; an empty set here would diff as everyone leaving.
	var sessions []session
	if err := j.getJSON(ctx, client, endpoint, base+"/Sessions", &sessions); err != nil {
		status.MembersHidden = true
	} else {
		for _, s := range sessions {
			if s.UserName != "" {
				status.Members[s.UserName] = struct{}{}
			}
		}
		status.MemberCount = len(status.Members)
	}

	return status, nil
}

func (j *Jellyfin) getJSON(ctx context.Context, client *http.Client, endpoint, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return protocolErr(endpoint, "build request: %v", err)
	}
	req.Header.Set("X-Emby-Token", j.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return Classify(endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return protocolErr(endpoint, "unauthorized (HTTP %d): check API key", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return protocolErr(endpoint, "unexpected HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return protocolErr(endpoint, "decode response: %v", err)
	}
	return nil
}

func (j *Jellyfin) client(endpoint string) *http.Client {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.clients[endpoint]
	if !ok {
		c = &http.Client{Timeout: j.Timeout}
		j.clients[endpoint] = c
	}
	return c
}

// Release drops the client for endpoint and closes its idle connections.
func (j *Jellyfin) Release(endpoint string) {
	j.mu.Lock()
	c, ok := j.clients[endpoint]
	delete(j.clients, endpoint)
	j.mu.Unlock()
	if ok {
		c.CloseIdleConnections()
	}
}
