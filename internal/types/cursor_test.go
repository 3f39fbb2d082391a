package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concrete scenario 5 from spec.md §8: WAL LSN ordering.
func TestCompareLSN(t *testing.T) {
	assert.Equal(t, -1, CompareLSN("0/FF", "1/0"))
	assert.Equal(t, 0, CompareLSN("0/1949850", "0/1949850"))
	assert.Equal(t, 1, CompareLSN("1/0", "0/FF"))
}

func TestCompareLSNFallsBackToStringCompare(t *testing.T) {
	// Malformed LSNs (no '/') fall back to string compare rather than
	// panicking - decode-time validation is the codec's job, not the
	// comparator's.
	assert.Equal(t, strCompare("abc", "abd"), CompareLSN("abc", "abd"))
}

func strCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Concrete scenario 6 from spec.md §8: checkpoint bracketing requires
// start.cursor <= end.cursor under the cursor's own total order.
func TestCursorMonotonicity(t *testing.T) {
	start := NewWALCursor("0/100", "slot1")
	end := NewWALCursor("0/200", "slot1")
	assert.True(t, start.Compare(end) <= 0)
}

func TestCursorCompareDifferentKindsPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic comparing cursors of different kinds")
		}
	}()
	NewWALCursor("0/1", "s").Compare(NewAuditCursor(1, "db"))
}

func TestCursorMarshalRoundTrip(t *testing.T) {
	cases := []Cursor{
		NewWALCursor("16/B374D848", "repl_slot"),
		NewAuditCursor(42, "appdb"),
		NewChangeStreamCursor([]byte{0x01, 0x02, 0x03}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	for _, c := range cases {
		data, err := MarshalCursor(c)
		require.NoError(t, err)
		back, err := UnmarshalCursor(data)
		require.NoError(t, err)
		assert.Equal(t, 0, back.Compare(c))
	}
}

func TestUnmarshalCursorCorruptIsFatal(t *testing.T) {
	_, err := UnmarshalCursor([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, IsCursorCorrupt(err))

	_, err = UnmarshalCursor([]byte(`{"kind":"not_a_kind"}`))
	require.Error(t, err)
	assert.True(t, IsCursorCorrupt(err))
}
