package like

import "fmt"

// SelectorKind distinguishes the two fetch forms.
type SelectorKind int

const (
	// KindSinglePost loads one post with inner-join semantics.
	KindSinglePost SelectorKind = iota + 1
	// KindPostSet loads many posts with outer-join semantics.
	KindPostSet
)

// Selector chooses which posts to load likes for.
// Build it with SinglePost or PostSet.
type Selector struct {
	kind SelectorKind
	ids  []int64
}

// SinglePost selects the likes of one post. Likes whose user row is
// missing are excluded.
func SinglePost(id int64) Selector {
	return Selector{kind: KindSinglePost, ids: []int64{id}}
}

// PostSet selects the likes of many posts. Likes whose user row is
// missing are kept with an invalid Profile. Duplicate ids are dropped.
func PostSet(ids ...int64) Selector {
	seen := make(map[int64]struct{}, len(ids))
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return Selector{kind: KindPostSet, ids: uniq}
}

// Kind reports the selector variant.
func (s Selector) Kind() SelectorKind { return s.kind }

// IDs returns a copy of the selected post ids.
func (s Selector) IDs() []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

// Validate rejects zero-value selectors and non-positive ids.
func (s Selector) Validate() error {
	switch s.kind {
	case KindSinglePost, KindPostSet:
	default:
		return fmt.Errorf("%w: selector is not initialized", ErrInvalidID)
	}
	for _, id := range s.ids {
		if id <= 0 {
			return fmt.Errorf("%w: post id must be positive, got %d", ErrInvalidID, id)
		}
	}
	return nil
}
