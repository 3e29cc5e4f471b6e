package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "2024-03-04"},
		{name: "leap day", input: "2024-02-29"},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "timestamp", input: "2024-03-04T10:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "unpadded", input: "2024-3-4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, formatDate(d))
		})
	}
}

func TestDayIndexStable(t *testing.T) {
	d, err := ParseDate("2024-03-04")
	require.NoError(t, err)

	first := dayIndex("group-a", d)
	assert.Equal(t, first, dayIndex("group-a", d))
	assert.GreaterOrEqual(t, first, 0)

	next := dayIndex("group-a", d.AddDate(0, 0, 1))
	assert.Equal(t, first+1, next)

	before, err := ParseDate("1999-01-01")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, dayIndex("group-a", before), 0)
}

func TestDayIndexAdvancesFarFromEpoch(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{name: "beyond duration range", date: "2400-06-01"},
		{name: "last representable year", date: "9999-12-30"},
		{name: "long before epoch", date: "1700-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			require.NoError(t, err)
			today := dayIndex("group-a", d)
			tomorrow := dayIndex("group-a", d.AddDate(0, 0, 1))
			assert.NotEqual(t, today, tomorrow)
			assert.Equal(t, 1, abs(tomorrow-today))
		})
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(2), floorDiv(5, 2))
	assert.Equal(t, int64(-3), floorDiv(-5, 2))
	assert.Equal(t, int64(-2), floorDiv(-4, 2))
	assert.Equal(t, int64(0), floorDiv(0, 2))
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{date: "2024-03-04", want: "2024-03-04"}, // Monday
		{date: "2024-03-06", want: "2024-03-04"},
		{date: "2024-03-10", want: "2024-03-04"}, // Sunday
		{date: "2024-03-11", want: "2024-03-11"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatDate(weekStart(d)))
		})
	}
}

func TestPick(t *testing.T) {
	assert.Equal(t, 1, pick(7, 3))
	assert.Equal(t, 2, pick(-1, 3))
	assert.Equal(t, 0, pick(0, 1))
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, "2024-03-01", addDays("2024-02-29", 1))
	assert.Equal(t, "2024-02-28", addDays("2024-03-04", -5))
}
