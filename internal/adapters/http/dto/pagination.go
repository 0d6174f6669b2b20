package dto

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize applies when the request names no limit.
	DefaultPageSize = 20

	// MaxPageSize is the largest page the API returns.
	MaxPageSize = 100

	// cursorPrefix tags cursors minted by this API so others are rejected.
	cursorPrefix = "pos:"
)

// ErrInvalidCursor is returned for a cursor this API did not mint.
var ErrInvalidCursor = errors.New("invalid cursor")

// PageRequest is the query of a paged listing. The collection is ordered by
// insertion, so a cursor is the position of the last quote already seen.
type PageRequest struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// Size returns the page size with the default applied.
func (p *PageRequest) Size() int {
	if p.Limit <= 0 {
		return DefaultPageSize
	}

	return min(p.Limit, MaxPageSize)
}

// Offset returns the index of the first quote of the requested page.
func (p *PageRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(p.Cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	pos, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}

	n, err := strconv.Atoi(pos)
	if err != nil || n < 0 {
		return 0, ErrInvalidCursor
	}

	return n + 1, nil
}

// PositionCursor encodes the position of the last item of a page.
func PositionCursor(pos int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(pos)))
}

// Page is one window of a listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// PageOf converts src[offset:offset+size] with conv. Items is never nil.
func PageOf[S, T any](src []S, offset, size int, conv func(S) T) *Page[T] {
	page := &Page[T]{Items: []T{}}
	if offset >= len(src) || size <= 0 {
		return page
	}

	end := min(offset+size, len(src))
	for _, item := range src[offset:end] {
		page.Items = append(page.Items, conv(item))
	}

	if end < len(src) {
		page.HasMore = true
		page.NextCursor = PositionCursor(end - 1)
	}

	return page
}
