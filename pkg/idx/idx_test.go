package idx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewIsParseable(t *testing.T) {
	t.Parallel()

	id := idx.New()
	require.False(t, id.IsZero())
	require.Len(t, id.String(), 26)

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestNewIsMonotonic(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	prev := idx.NewAt(at)
	for range 100 {
		next := idx.NewAt(at)
		require.Less(t, prev.String(), next.String())
		prev = next
	}
}

func TestTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)
	require.True(t, id.Time().Equal(at))

	require.True(t, idx.Zero.Time().IsZero())
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA"} {
		_, err := idx.Parse(in)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", in)
	}
}
