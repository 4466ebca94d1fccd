package pagination

import (
	"slices"
	"strings"
)

// Slice pages through an in-memory collection with the same keyset rules as Query.
// filter may be nil.
func Slice[T any](items []T, req Request, keyOf KeyFunc[T], filter func(T) bool) Page[T] {
	req = req.Normalize()

	matched := make([]T, 0, len(items))
	for _, item := range items {
		if filter == nil || filter(item) {
			matched = append(matched, item)
		}
	}

	slices.SortStableFunc(matched, func(a, b T) int {
		cmp := keyOf(a).Compare(keyOf(b))
		if !req.Ascending {
			cmp = -cmp
		}
		return cmp
	})

	candidates := make([]T, 0, req.PageSize+1)
	for _, item := range matched {
		if !afterCursor(keyOf(item), req) {
			continue
		}
		candidates = append(candidates, item)
		if len(candidates) > req.PageSize {
			break
		}
	}

	page := Build(candidates, req, keyOf)
	if req.IncludeTotal {
		total := int64(len(matched))
		page.Total = &total
	}
	return page
}

func afterCursor(key Key, req Request) bool {
	if req.Cursor == nil {
		return true
	}
	if req.CursorSortOrder == nil {
		cmp := strings.Compare(key.ID, *req.Cursor)
		if req.Ascending {
			return cmp > 0
		}
		return cmp < 0
	}
	return key.After(Key{SortOrder: *req.CursorSortOrder, ID: *req.Cursor}, req.Ascending)
}
