package applications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/underwrite/pkg/pagination"
	"github.com/JaimeStill/underwrite/pkg/query"
	"github.com/JaimeStill/underwrite/pkg/repository"
)

// ListResult is a page of applications. NextCursor resumes after the last item
// when the sort is keyset-capable and more rows remain.
type ListResult = pagination.PageResult[Application]

func (r *repo) List(ctx context.Context, params ListParams) (*ListResult, error) {
	field, ok := sortFields[params.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort_by %q", ErrInvalidSort, params.SortBy)
	}
	if params.PageSize < 1 {
		params.PageSize = r.pagination.DefaultPageSize
	}
	if params.Page < 1 {
		params.Page = 1
	}

	var (
		seekValue time.Time
		seekID    uuid.UUID
		err       error
	)
	if params.Keyset() {
		if seekValue, seekID, err = resume(params); err != nil {
			return nil, err
		}
	}

	b := query.NewBuilder(scoredProjection)
	params.Apply(b)

	countSQL, countArgs := b.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	b.OrderByFields([]query.SortField{
		{Field: field, Descending: params.Descending},
		{Field: "ID", Descending: params.Descending},
	}).NullsLast()

	var (
		q    string
		args []any
	)

	if params.Keyset() {
		b.WhereSeek([]string{field, "ID"}, []any{seekValue, seekID}, params.Descending)
		q, args = b.BuildLimit(params.PageSize + 1)
	} else {
		q, args = b.BuildOffset(params.PageSize+1, (params.Page-1)*params.PageSize)
	}

	items, err := repository.QueryMany(ctx, r.db, q, args, scanScoredApplication)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}

	more := len(items) > params.PageSize
	if more {
		items = items[:params.PageSize]
	}

	result := pagination.NewPageResult(items, total, params.Page, params.PageSize)

	if more && keysetSorts[params.SortBy] {
		next, err := nextCursor(params, items[len(items)-1])
		if err != nil {
			return nil, err
		}
		result.NextCursor = &next
	}

	return &result, nil
}

// resume decodes the request cursor and checks it belongs to this listing.
func resume(params ListParams) (time.Time, uuid.UUID, error) {
	if !keysetSorts[params.SortBy] {
		return time.Time{}, uuid.Nil, pagination.ErrUnsupportedCursorSort
	}

	cur, err := pagination.DecodeCursor(*params.Cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	if err := cur.Matches(params.SortBy, params.Descending, params.filterKey()); err != nil {
		return time.Time{}, uuid.Nil, err
	}

	value, err := time.Parse(time.RFC3339Nano, cur.Value)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: value: %v", pagination.ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(cur.ID)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: id: %v", pagination.ErrInvalidCursor, err)
	}

	return value, id, nil
}

func nextCursor(params ListParams, last Application) (string, error) {
	value := last.CreatedAt
	if params.SortBy == "submitted_at" {
		value = last.SubmittedAt
	}

	return pagination.EncodeCursor(pagination.NewCursor(
		params.SortBy,
		params.Descending,
		value.UTC().Format(time.RFC3339Nano),
		last.ID.String(),
		params.filterKey(),
	))
}
