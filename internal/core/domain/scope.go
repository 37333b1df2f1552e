package domain

import (
	"sort"

	"github.com/google/uuid"
)

// BusinessScope is the resolved set of business identifiers an actor may
// operate within. The zero value is a restricted scope covering nothing.
type BusinessScope struct {
	unrestricted bool
	ids          map[uuid.UUID]struct{}
}

// UnrestrictedScope returns the scope used for internal staff: no filtering.
func UnrestrictedScope() BusinessScope {
	return BusinessScope{unrestricted: true}
}

// RestrictedScope returns a scope limited to the given business ids.
// With no ids the scope matches nothing.
func RestrictedScope(ids ...uuid.UUID) BusinessScope {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return BusinessScope{ids: set}
}

// IsUnrestricted reports whether the scope applies no filtering.
func (s BusinessScope) IsUnrestricted() bool {
	return s.unrestricted
}

// IsEmpty reports whether the scope matches no business at all.
func (s BusinessScope) IsEmpty() bool {
	return !s.unrestricted && len(s.ids) == 0
}

// Allows reports whether the given business falls inside the scope.
func (s BusinessScope) Allows(businessID uuid.UUID) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.ids[businessID]
	return ok
}

// Intersect narrows the scope to a single requested business.
// The result is empty if the business is not permitted.
func (s BusinessScope) Intersect(businessID uuid.UUID) BusinessScope {
	if s.Allows(businessID) {
		return RestrictedScope(businessID)
	}
	return RestrictedScope()
}

// IDs returns the permitted business ids in deterministic order.
// It returns nil for an unrestricted scope.
func (s BusinessScope) IDs() []uuid.UUID {
	if s.unrestricted {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
