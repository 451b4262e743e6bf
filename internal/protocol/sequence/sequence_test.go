package sequence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMaxStore struct {
	max map[int]int
}

func (s fixedMaxStore) MaxSequenceForYear(_ context.Context, year int) (int, error) {
	return s.max[year], nil
}

func TestFormatAndParse(t *testing.T) {
	number := Format(1, 2025)
	assert.Equal(t, "00001/2025", number)
	assert.True(t, Pattern.MatchString(number))

	seq, year, err := Parse("00042/2025")
	require.NoError(t, err)
	assert.Equal(t, 42, seq)
	assert.Equal(t, 2025, year)
}

func TestParseRejectsMalformedNumbers(t *testing.T) {
	for _, raw := range []string{"", "1/2025", "000001/2025", "00001-2025", "00001/25", "abcde/2025"} {
		_, _, err := Parse(raw)
		require.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestNextStartsAtOneAndIncrements(t *testing.T) {
	gen := NewGenerator(fixedMaxStore{max: map[int]int{2025: 0, 2024: 17}})

	number, err := gen.Next(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "00001/2025", number)

	// Sequences are per year: 2024 continues where it left off.
	number, err = gen.Next(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "00018/2024", number)
}
