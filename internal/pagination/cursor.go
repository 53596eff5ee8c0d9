// Package pagination implements the opaque cursors behind the transaction
// listing. The snapshot is walked in (timestamp, transaction ID) order, and
// a cursor names the last row the client has seen; the next page starts
// strictly after it. Cursors are base64 over "unixnanos|id", opaque to
// clients and stable across restarts because they carry row identity, not
// offsets.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned for cursors that are not base64 or do not
// carry a "unixnanos|id" payload.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor is a decoded position in the snapshot walk: the timestamp and ID
// of the last transaction on the previous page.
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// Encode builds the opaque cursor for a transaction.
func Encode(ts time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", ts.UnixNano(), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor from a query parameter. Empty input means the
// first page and yields a nil cursor.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	nanosPart, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(nanosPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	return &Cursor{Timestamp: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// ComputePage trims an over-fetched slice (limit+1 rows) to the page size.
// key extracts the (timestamp, id) sort key of an item; when a next page
// exists the returned cursor points at the last row of this one.
func ComputePage[T any](items []T, limit int, key func(T) (time.Time, string)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	page := items[:limit]
	ts, id := key(page[len(page)-1])
	return page, Encode(ts, id), true
}
