package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
	}{
		{"00:00", 0},
		{"09:30", 9*3600 + 30*60},
		{"19:00:01", 19*3600 + 1},
		{" 23:59:59 ", 23*3600 + 59*60 + 59},
	}
	for _, tc := range tests {
		got, err := ParseTimeOfDay(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "9", "24:00", "12:60", "12:00:60", "aa:bb", "1:2:3:4"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, in)
	}
}

func TestTimeOfDayOf(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 29, 59, 500, time.UTC)
	assert.Equal(t, TimeOfDay(9*3600+29*60+59), TimeOfDayOf(ts))
	assert.Equal(t, "09:29:59", TimeOfDayOf(ts).String())
}

func TestCommand_Switch(t *testing.T) {
	var cmd Command
	require.NoError(t, json.Unmarshal([]byte(`{"values":{"a":1,"b":0,"c":1.0,"d":0.5,"e":true,"f":"1","g":2}}`), &cmd))

	on, err := cmd.Switch("a")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = cmd.Switch("b")
	require.NoError(t, err)
	assert.False(t, on)

	on, err = cmd.Switch("c")
	require.NoError(t, err)
	assert.True(t, on)

	for _, name := range []string{"d", "e", "f", "g", "missing"} {
		_, err := cmd.Switch(name)
		assert.Error(t, err, name)
	}
}
