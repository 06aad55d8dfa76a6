package idx_test

import (
	"sort"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	require.True(t, idx.Valid(idx.New()))

	for _, s := range []string{"", " ", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA", "01arz3ndektsv4rrffq69g5fav\n"} {
		require.False(t, idx.Valid(s), "%q", s)
	}
}

func TestMonotonicWithinMillisecond(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = idx.NewAt(at)
	}

	require.True(t, sort.StringsAreSorted(ids))
}

func TestTime(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()

	got, ok := idx.Time(idx.NewAt(at))
	require.True(t, ok)
	require.True(t, got.Equal(at))

	_, ok = idx.Time("nope")
	require.False(t, ok)
}
