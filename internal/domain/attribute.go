package domain

// Attribute catalog. The set of capability tags is fixed reference data;
// rows are seeded by migration and looked up by name at request time.
const (
	AttrAdmin         = "ADMIN"
	AttrSeller        = "SELLER"
	AttrPendingSeller = "PENDING_SELLER"
	AttrVerified      = "VERIFIED"
	AttrBuyer         = "BUYER"
	AttrNewUser       = "NEW_USER"
)

// DefaultAttributes is the capability set every freshly registered user gets.
// A user's set is never empty after registration.
func DefaultAttributes() []string {
	return []string{AttrNewUser, AttrBuyer}
}

// AttributeSet is an unordered set of attribute identifiers. Duplicates and
// insertion order are meaningless; membership is the only thing that counts.
type AttributeSet map[int64]struct{}

func NewAttributeSet(ids ...int64) AttributeSet {
	s := make(AttributeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s AttributeSet) Add(id int64) {
	s[id] = struct{}{}
}

func (s AttributeSet) Remove(id int64) {
	delete(s, id)
}

func (s AttributeSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// ContainsAll reports whether every id in required is a member of s.
// This is the positive-gate predicate: required ⊆ s.
func (s AttributeSet) ContainsAll(required []int64) bool {
	for _, id := range required {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// Disjoint reports whether none of the ids in forbidden is a member of s.
// This is the negative-gate predicate: forbidden ∩ s = ∅. It is not the
// negation of ContainsAll; "has none" and "lacks some" are different checks.
func (s AttributeSet) Disjoint(forbidden []int64) bool {
	for _, id := range forbidden {
		if s.Has(id) {
			return false
		}
	}
	return true
}

func (s AttributeSet) Len() int {
	return len(s)
}
