package domain

import "time"

// ServiceStatus is the normalized outcome of one successful probe, regardless
// of which backend produced it.
type ServiceStatus struct {
	Online         bool          `json:"online"`
	MemberCount    int           `json:"member_count"`
	MemberCapacity int           `json:"member_capacity"`
	Members        Set           `json:"members,omitempty"`
	MembersHidden  bool          `json:"members_hidden,omitempty"`
	Descriptor     string        `json:"descriptor,omitempty"`
	Latency        time.Duration `json:"latency_ns"`
}
