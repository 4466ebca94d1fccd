package pagination

import (
	"strings"
)

const (
	// DefaultPageSize is used when the requested page size is outside [1, MaxPageSize].
	DefaultPageSize = 20
	// MaxPageSize bounds a single page.
	MaxPageSize = 100
)

// Request describes one keyset page. Cursor is the id of the last item seen and
// CursorSortOrder its sort order; together they form the exclusive lower bound.
type Request struct {
	Cursor          *string
	CursorSortOrder *int64
	PageSize        int
	Ascending       bool
	IncludeTotal    bool
}

// Normalize clamps the page size and drops blank cursors.
func (r Request) Normalize() Request {
	if r.PageSize < 1 || r.PageSize > MaxPageSize {
		r.PageSize = DefaultPageSize
	}
	if r.Cursor != nil {
		trimmed := strings.TrimSpace(*r.Cursor)
		if trimmed == "" {
			r.Cursor = nil
			r.CursorSortOrder = nil
		} else {
			r.Cursor = &trimmed
		}
	}
	return r
}

// Key is the (sort order, id) tuple that totally orders a feed.
type Key struct {
	SortOrder int64
	ID        string
}

// Compare orders keys by sort order, then id.
func (k Key) Compare(other Key) int {
	switch {
	case k.SortOrder < other.SortOrder:
		return -1
	case k.SortOrder > other.SortOrder:
		return 1
	}
	return strings.Compare(k.ID, other.ID)
}

// After reports whether k comes strictly after cursor in the requested direction.
func (k Key) After(cursor Key, ascending bool) bool {
	if ascending {
		return k.Compare(cursor) > 0
	}
	return k.Compare(cursor) < 0
}

// KeyFunc extracts the ordering key from an item.
type KeyFunc[T any] func(T) Key

// Page is one slice of a feed plus the cursor to continue from.
type Page[T any] struct {
	Data                []T     `json:"data"`
	NextCursor          *string `json:"nextCursor"`
	NextCursorSortOrder *int64  `json:"nextCursorSortOrder"`
	HasNextPage         bool    `json:"hasNextPage"`
	Total               *int64  `json:"total,omitempty"`
}

// Build turns up to PageSize+1 candidate rows, already ordered and filtered by the keyset
// predicate, into a page. The extra row only signals that another page exists.
func Build[T any](rows []T, req Request, keyOf KeyFunc[T]) Page[T] {
	req = req.Normalize()

	page := Page[T]{Data: rows}
	if len(rows) > req.PageSize {
		page.Data = rows[:req.PageSize]
		page.HasNextPage = true
	}
	if page.Data == nil {
		page.Data = []T{}
	}

	if page.HasNextPage {
		last := keyOf(page.Data[len(page.Data)-1])
		id := last.ID
		sortOrder := last.SortOrder
		page.NextCursor = &id
		page.NextCursorSortOrder = &sortOrder
	}
	return page
}

// Map converts the items of a page while keeping its cursor fields.
func Map[T, U any](page Page[T], fn func(T) U) Page[U] {
	out := Page[U]{
		Data:                make([]U, 0, len(page.Data)),
		NextCursor:          page.NextCursor,
		NextCursorSortOrder: page.NextCursorSortOrder,
		HasNextPage:         page.HasNextPage,
		Total:               page.Total,
	}
	for _, item := range page.Data {
		out.Data = append(out.Data, fn(item))
	}
	return out
}
