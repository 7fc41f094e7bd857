package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonInferDate(t *testing.T) {
	season := NewSeason(2023)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"Thu 10/24", time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC)},
		{"Wed 1/3", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"Sun 12/31", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"Mon 4/15", time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)},
		{"2/29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := season.InferDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSeasonInferDate_Invalid(t *testing.T) {
	season := NewSeason(2023)
	for _, input := range []string{"", "Thu", "Thu 13/01", "Thu 2/30", "Thu x/1"} {
		_, err := season.InferDate(input)
		assert.Error(t, err, input)
	}
}

func TestSeasonString(t *testing.T) {
	assert.Equal(t, "2023-24", NewSeason(2023).String())
	assert.Equal(t, "2099-00", NewSeason(2099).String())
}

func TestParseUTC_NormalizesToSameRepresentation(t *testing.T) {
	fromJSON, err := ParseUTC("2023-10-24T23:30:00Z")
	require.NoError(t, err)

	fromPage, err := NewSeason(2023).InferDate("Tue 10/24")
	require.NoError(t, err)

	assert.Equal(t, time.UTC, fromJSON.Location())
	assert.True(t, CalendarDate(fromJSON).Equal(fromPage))
}

func TestParseUTC_Offset(t *testing.T) {
	got, err := ParseUTC("2023-10-24T19:30:00-04:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 10, 24, 23, 30, 0, 0, time.UTC), got)
}

func TestSeasonContains(t *testing.T) {
	s := NewSeason(2023)
	assert.Equal(t, time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), s.Start())
	assert.True(t, s.Contains(time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, s.Contains(time.Date(2024, 6, 17, 1, 0, 0, 0, time.UTC)))
	assert.False(t, s.Contains(time.Date(2023, 9, 30, 23, 59, 0, 0, time.UTC)))
	assert.False(t, s.Contains(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)))
}
