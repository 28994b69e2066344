package factstore

import "time"

// State tags a snapshot's freshness
type State int

// Snapshot states, ordered by usefulness
const (
	Unavailable State = iota
	Stale
	Fresh
)

// String returns the state name used in logs and stats
func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "unavailable"
	}
}

// Snapshot is the tagged result of a cached fetch: Fresh data within TTL,
// Stale data served after a failed refresh, or Unavailable when nothing has
// ever been fetched. Err carries the last fetch error for Stale/Unavailable.
type Snapshot[T any] struct {
	State State
	Value T
	AsOf  time.Time
	Err   error
}

// Usable reports whether the snapshot carries data a stage can act on
func (s Snapshot[T]) Usable() bool {
	return s.State != Unavailable
}
