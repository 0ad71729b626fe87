package idx_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eduflowhub/eduflow/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id := idx.New()

	tests := []struct {
		name    string
		in      string
		want    idx.ID
		wantErr bool
	}{
		{"canonical", id.String(), id, false},
		{"lowercase is normalised", strings.ToLower(id.String()), id, false},
		{"surrounding space", "  " + id.String() + " ", id, false},
		{"empty", "", idx.Zero, true},
		{"too short", "01HQ7T3Z1MZ", idx.Zero, true},
		{"not crockford", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZU!", idx.Zero, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, idx.ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewAt_SortsByTime(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0).UTC())
	b := idx.NewAt(time.Unix(2, 0).UTC())
	require.Less(t, a.String(), b.String())

	tm := time.Unix(1700000000, 0).UTC()
	require.WithinDuration(t, tm, idx.NewAt(tm).Time(), time.Millisecond)
	require.True(t, idx.Zero.Time().IsZero())
}

func TestNew_UniqueUnderConcurrency(t *testing.T) {
	const n = 200
	ids := make(chan idx.ID, n)

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() { ids <- idx.New() })
	}
	wg.Wait()
	close(ids)

	seen := make(map[idx.ID]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
