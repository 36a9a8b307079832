package dates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterBookable(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "wednesday kept sunday dropped",
			input: []string{"2026-02-11", "2026-02-15"},
			want:  []string{"2026-02-11"},
		},
		{
			name:  "saturday is a business day",
			input: []string{"2026-02-14"},
			want:  []string{"2026-02-14"},
		},
		{
			name:  "order and duplicates preserved",
			input: []string{"2026-02-13", "2026-02-11", "2026-02-13"},
			want:  []string{"2026-02-13", "2026-02-11", "2026-02-13"},
		},
		{
			name:  "only sundays",
			input: []string{"2026-02-15", "2026-02-22"},
			want:  nil,
		},
		{
			name:  "empty input",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterBookable(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterBookable_InvalidDate(t *testing.T) {
	for _, bad := range []string{"2026/02/11", "11-02-2026", "tomorrow", "2026-02-30", ""} {
		t.Run(bad, func(t *testing.T) {
			_, err := FilterBookable([]string{"2026-02-11", bad})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDateFormat))
		})
	}
}

func TestPartition(t *testing.T) {
	input := []string{"2026-02-15", "2026-02-11", "2026-02-15", "2026-02-12"}

	set, err := Partition(input)
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-02-11", "2026-02-12"}, set.Bookable)
	assert.Equal(t, []string{"2026-02-15", "2026-02-15"}, set.Skipped)
	assert.Len(t, append(set.Bookable, set.Skipped...), len(input))

	for _, d := range set.Bookable {
		tm, err := Parse(d)
		require.NoError(t, err)
		assert.True(t, IsBusinessDay(tm), d)
	}
}
