package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m, s int) time.Time {
	return time.Date(2024, 3, 10, h, m, s, 0, time.Local)
}

func TestIsActive_Boundaries(t *testing.T) {
	rule, err := ParseRule("09:30", "19:00")
	require.NoError(t, err)

	assert.True(t, IsActive(rule, at(9, 30, 0)))
	assert.False(t, IsActive(rule, at(9, 29, 59)))
	assert.True(t, IsActive(rule, at(12, 0, 0)))
	assert.True(t, IsActive(rule, at(19, 0, 0)))
	assert.False(t, IsActive(rule, at(19, 0, 1)))
	assert.False(t, IsActive(rule, at(0, 0, 0)))
}

func TestParseRule_RejectsCrossMidnight(t *testing.T) {
	_, err := ParseRule("22:00", "06:00")
	assert.Error(t, err)
}

func TestParseRule_RejectsGarbage(t *testing.T) {
	_, err := ParseRule("nine", "19:00")
	assert.Error(t, err)
	_, err = ParseRule("09:00", "25:00")
	assert.Error(t, err)
}

func TestParseRule_SingleInstant(t *testing.T) {
	rule, err := ParseRule("12:00", "12:00")
	require.NoError(t, err)
	assert.True(t, IsActive(rule, at(12, 0, 0)))
	assert.False(t, IsActive(rule, at(12, 0, 1)))
}

func TestOverlaps(t *testing.T) {
	day, _ := ParseRule("09:30", "19:00")
	evening, _ := ParseRule("19:00:01", "22:00")
	late, _ := ParseRule("18:00", "22:00")

	assert.False(t, Overlaps(day, evening))
	assert.True(t, Overlaps(day, late))
	assert.True(t, Overlaps(late, day))
}
