package pagination

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCursor indicates a cursor that cannot be decoded or no longer
	// matches the sort and filters of the request it is used with.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrUnsupportedCursorSort indicates keyset pagination was requested for a
	// sort key that is not keyset-capable.
	ErrUnsupportedCursorSort = errors.New("cursor pagination is not supported for this sort")
)

// Cursor is the decoded state of an opaque keyset token. Value and ID hold the
// sort key and tie-breaker of the last row on the previous page.
type Cursor struct {
	Sort       string `json:"sort"`
	Descending bool   `json:"desc"`
	Value      string `json:"value"`
	ID         string `json:"id"`
	FilterHash string `json:"filter_hash,omitempty"`
}

// EncodeCursor encodes a cursor to an opaque URL-safe token.
func EncodeCursor(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor decodes an opaque token. All failures wrap ErrInvalidCursor.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("%w: empty token", ErrInvalidCursor)
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: decode: %v", ErrInvalidCursor, err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: unmarshal: %v", ErrInvalidCursor, err)
	}

	if c.Sort == "" || c.Value == "" || c.ID == "" {
		return Cursor{}, fmt.Errorf("%w: missing fields", ErrInvalidCursor)
	}

	return c, nil
}

// HashFilter computes a short hash of a canonical filter string.
// Returns empty string for an empty filter.
func HashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(h[:8])
}

// Matches checks that the cursor was issued for the same sort, direction, and filters.
func (c Cursor) Matches(sort string, descending bool, filter string) error {
	if c.Sort != sort || c.Descending != descending {
		return fmt.Errorf("%w: sort changed since cursor was created", ErrInvalidCursor)
	}
	if c.FilterHash != HashFilter(filter) {
		return fmt.Errorf("%w: filters changed since cursor was created", ErrInvalidCursor)
	}
	return nil
}

// NewCursor builds the cursor that resumes after a row with the given sort value and id.
func NewCursor(sort string, descending bool, value, id, filter string) Cursor {
	return Cursor{
		Sort:       sort,
		Descending: descending,
		Value:      value,
		ID:         id,
		FilterHash: HashFilter(filter),
	}
}
