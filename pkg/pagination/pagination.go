package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"unicode/utf8"
)

// ErrInvalidPage indicates a page, page_size, or search parameter outside the accepted range.
var ErrInvalidPage = errors.New("invalid page parameters")

// PageRequest represents a client request for a page of data with an optional
// search term and keyset cursor. When Cursor is set, Page is ignored. Ordering is
// owned by each listing, which reads its own sort parameters.
type PageRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Search   *string `json:"search,omitempty"`
	Cursor   *string `json:"cursor,omitempty"`
}

// Normalize adjusts the request to ensure valid pagination values based on the config.
func (r *PageRequest) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// PageRequestFromQuery parses pagination parameters from URL query values.
// Supported parameters: page, page_size, search, cursor.
// Absent values take config defaults; present values outside [1, MaxPageSize]
// or that fail to parse return ErrInvalidPage, as does a search term longer
// than MaxSearchLength runes.
func PageRequestFromQuery(values url.Values, cfg Config) (PageRequest, error) {
	var req PageRequest

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return req, fmt.Errorf("%w: page must be a positive integer", ErrInvalidPage)
		}
		req.Page = page
	}

	if v := values.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > cfg.MaxPageSize {
			return req, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidPage, cfg.MaxPageSize)
		}
		req.PageSize = size
	}

	if s := values.Get("search"); s != "" {
		if cfg.MaxSearchLength > 0 && utf8.RuneCountInString(s) > cfg.MaxSearchLength {
			return req, fmt.Errorf("%w: search exceeds %d characters", ErrInvalidPage, cfg.MaxSearchLength)
		}
		req.Search = &s
	}

	if c := values.Get("cursor"); c != "" {
		req.Cursor = &c
	}

	req.Normalize(cfg)
	return req, nil
}

// PageResult holds a page of data along with pagination metadata.
// NextCursor is set when another page can be fetched by keyset.
type PageResult[T any] struct {
	Items      []T     `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	NextCursor *string `json:"next_cursor"`
}

// NewPageResult creates a PageResult with calculated total pages.
func NewPageResult[T any](items []T, total, page, pageSize int) PageResult[T] {
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}

	if items == nil {
		items = []T{}
	}

	return PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
