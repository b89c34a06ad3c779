// Package cursor persists the pagination position between runs.
package cursor

//go:generate mockgen -source=cursor.go -destination=mocks/store_mock.go -package=mocks Store

import (
	"context"
	"strings"
)

// NextMarker is the relation suffix the API appends to its Link header
const NextMarker = `; rel="next"`

// Cursor is the raw Link header value of the last page that had more results.
// The zero value means "start from the beginning".
type Cursor string

// IsEmpty reports whether c carries no position
func (c Cursor) IsEmpty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// URL returns the next-page URL with the rel="next" marker removed.
// Angle brackets around the URL are dropped as well. Anything else is
// returned as is.
func (c Cursor) URL() string {
	s := strings.TrimSpace(string(c))
	s = strings.TrimSuffix(s, NextMarker)
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
	}
	return s
}

// String returns the raw cursor value
func (c Cursor) String() string {
	return string(c)
}

// Store is a single-slot location for a Cursor that outlives the process.
//
// Implementations do no locking: two processes sharing a store race and the
// last writer wins.
type Store interface {
	// Load returns the stored cursor, or an empty cursor when none is stored
	Load(ctx context.Context) (Cursor, error)
	// Save replaces the stored cursor
	Save(ctx context.Context, c Cursor) error
	// Clear removes the stored cursor. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	// Location describes where the cursor lives, for diagnostics
	Location() string
}
