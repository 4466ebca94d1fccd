package pagination

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns names the ordering columns of a table. Values are trusted identifiers.
type Columns struct {
	SortOrder string
	ID        string
}

// Resolver loads the sort order of the item a cursor points at. It is used when a client
// sends a cursor without its secondary key. found=false means the item no longer exists.
type Resolver func(ctx context.Context, id string) (sortOrder int64, found bool, err error)

// QueryOptions configures Query.
type QueryOptions struct {
	Columns  Columns
	Resolver Resolver
}

// Scope applies the keyset predicate, the (sort order, id) ordering and a PageSize+1 limit.
func Scope(req Request, cols Columns) func(*gorm.DB) *gorm.DB {
	req = req.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		op := "<"
		if req.Ascending {
			op = ">"
		}

		if req.Cursor != nil {
			if req.CursorSortOrder != nil {
				db = db.Where(
					fmt.Sprintf("((%s %s ?) OR (%s = ? AND %s %s ?))", cols.SortOrder, op, cols.SortOrder, cols.ID, op),
					*req.CursorSortOrder, *req.CursorSortOrder, *req.Cursor,
				)
			} else {
				db = db.Where(fmt.Sprintf("%s %s ?", cols.ID, op), *req.Cursor)
			}
		}

		return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: cols.SortOrder, Raw: true}, Desc: !req.Ascending},
			{Column: clause.Column{Name: cols.ID, Raw: true}, Desc: !req.Ascending},
		}}).Limit(req.PageSize + 1)
	}
}

// Query executes a keyset page against db, which must already carry the model and the
// caller's filter. The total, when requested, counts the filtered set without the cursor.
func Query[T any](ctx context.Context, db *gorm.DB, req Request, opts QueryOptions, keyOf KeyFunc[T]) (Page[T], error) {
	req = req.Normalize()

	if req.Cursor != nil && req.CursorSortOrder == nil && opts.Resolver != nil {
		sortOrder, found, err := opts.Resolver(ctx, *req.Cursor)
		if err != nil {
			return Page[T]{}, fmt.Errorf("pagination: resolve cursor: %w", err)
		}
		if found {
			req.CursorSortOrder = &sortOrder
		}
	}

	var total *int64
	if req.IncludeTotal {
		var count int64
		if err := db.Session(&gorm.Session{}).WithContext(ctx).Count(&count).Error; err != nil {
			return Page[T]{}, fmt.Errorf("pagination: count: %w", err)
		}
		total = &count
	}

	var rows []T
	if err := db.Session(&gorm.Session{}).WithContext(ctx).Scopes(Scope(req, opts.Columns)).Find(&rows).Error; err != nil {
		return Page[T]{}, fmt.Errorf("pagination: query: %w", err)
	}

	page := Build(rows, req, keyOf)
	page.Total = total
	return page, nil
}
