// Package members detects arrivals and departures by polling-based set
// diffing. Joined and Left are pure; only Update touches stored state, so
// callers control exactly when a poll becomes the new baseline.
package members

import (
	"github.com/hamed0406/serverwatch/internal/domain"
	"github.com/hamed0406/serverwatch/internal/registry"
)

// Joined returns the members present now that were absent at the last
// recorded poll. Does not mutate the target.
func Joined(t *registry.Target, current domain.Set) domain.Set {
	return current.Diff(t.PrevMembers)
}

// Left returns the members recorded at the last poll that are absent now.
// Does not mutate the target.
func Left(t *registry.Target, current domain.Set) domain.Set {
	return t.PrevMembers.Diff(current)
}

// Update stores a copy of current as the new baseline for future diffs.
func Update(t *registry.Target, current domain.Set) {
	t.PrevMembers = current.Copy()
}
