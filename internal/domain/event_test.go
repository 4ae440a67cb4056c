package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(year, month int, level float64) FloodEvent {
	return FloodEvent{
		State: "bihar", City: "patna", Area: "gandhi maidan",
		Year: year, Month: month, Level: level, Impact: "flooding",
	}
}

func TestFloodEvent_Validate(t *testing.T) {
	require.NoError(t, event(2020, 8, 82000).Validate())

	for _, month := range []int{0, 13} {
		err := event(2020, month, 1).Validate()
		assert.ErrorIs(t, err, ErrInvalidInput, "month %d", month)
	}

	assert.ErrorIs(t, event(2020, 8, -1).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, event(2020, 8, 1e300).Validate(), ErrInvalidInput)
	require.NoError(t, event(2020, 8, MaxEventLevel).Validate())

	e := event(2020, 8, 1)
	e.Casualties = -3
	assert.ErrorIs(t, e.Validate(), ErrInvalidInput)
}

func TestMostRecent_SortsAndLimits(t *testing.T) {
	events := []FloodEvent{
		event(2018, 9, 75000),
		event(2020, 8, 82000),
		event(2019, 7, 78000),
		event(2020, 2, 60000),
		event(2015, 6, 50000),
		event(2021, 1, 40000),
	}

	recent := MostRecent(events, 5)
	require.Len(t, recent, 5)
	assert.Equal(t, 2021, recent[0].Year)
	assert.Equal(t, 8, recent[1].Month)
	assert.Equal(t, 2, recent[2].Month)
	assert.Equal(t, 2019, recent[3].Year)
	assert.Equal(t, 2018, recent[4].Year)

	// input untouched
	assert.Equal(t, 2018, events[0].Year)
}

func TestMostRecent_ClampsLimit(t *testing.T) {
	events := make([]FloodEvent, 8)
	for i := range events {
		events[i] = event(2000+i, 1, 1)
	}
	assert.Len(t, MostRecent(events, 0), MaxRecentEvents)
	assert.Len(t, MostRecent(events, 50), MaxRecentEvents)
	assert.Len(t, MostRecent(events, 2), 2)
}
