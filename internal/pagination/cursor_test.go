package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := Encode(at, "tx-042")

	cur, err := Decode(s)
	require.NoError(t, err)
	assert.True(t, cur.Timestamp.Equal(at))
	assert.Equal(t, "tx-042", cur.ID)
}

func TestDecode_Empty(t *testing.T) {
	cur, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("not a cursor")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = Decode("bm9waXBl") // valid base64, no separator
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = Decode(Encode(time.Time{}, "")) // separator but empty id
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestComputePage(t *testing.T) {
	type row struct {
		at time.Time
		id string
	}
	base := time.Now().UTC()
	rows := []row{
		{base, "a"},
		{base.Add(time.Second), "b"},
		{base.Add(2 * time.Second), "c"},
	}

	// Fetched limit+1: has more, cursor points at the last returned row.
	page, next, more := ComputePage(rows, 2, func(r row) (time.Time, string) {
		return r.at, r.id
	})
	require.Len(t, page, 2)
	assert.True(t, more)

	cur, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, "b", cur.ID)

	// Exactly limit: no cursor.
	page, next, more = ComputePage(rows[:2], 2, func(r row) (time.Time, string) {
		return r.at, r.id
	})
	assert.Len(t, page, 2)
	assert.Empty(t, next)
	assert.False(t, more)
}
