package timeline

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// IDSet is a set of item ids. The zero value is an empty, read-only set.
type IDSet map[uuid.UUID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...uuid.UUID) IDSet {
	out := make(IDSet, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// Contains reports membership.
func (s IDSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy. A nil set clones to an empty set.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in byte order, for deterministic output.
func (s IDSet) Sorted() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
