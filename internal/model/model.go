package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metric keys sent to the server.
const (
	MetricWaterTemperature = "temperature_water"
	MetricRoomTemperature  = "temperature_room"
	MetricFan              = "fan"
)

// Sample is one sensor reading. Absent samples carry no value and are never stored as zero.
type Sample struct {
	Value   float64
	Present bool
}

func PresentSample(v float64) Sample {
	return Sample{Value: v, Present: true}
}

func AbsentSample() Sample {
	return Sample{}
}

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM or HH:MM:SS", s)
	}

	limits := []int{23, 59, 59}
	units := []int{3600, 60, 1}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
		if n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q: field %d out of range", s, i)
		}
		total += n * units[i]
	}
	return TimeOfDay(total), nil
}

func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	s := int(t) % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// ScheduleRule is a same-day window; both bounds are inclusive.
type ScheduleRule struct {
	Start TimeOfDay
	End   TimeOfDay
}

// TelemetrySnapshot is one cycle's payload. Values only holds metrics that completed this cycle.
type TelemetrySnapshot struct {
	ControllerID string             `json:"controllerId"`
	Values       map[string]float64 `json:"values"`
}

// Command is an inbound manual control message keyed by device name. Values stay raw so
// one bad value does not spoil the rest of the message.
type Command struct {
	Values map[string]json.RawMessage `json:"values"`
}

// Switch decodes the value for name. Only the numbers 0 and 1 are accepted.
func (c Command) Switch(name string) (bool, error) {
	raw, ok := c.Values[name]
	if !ok {
		return false, fmt.Errorf("no value for %s", name)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("value %s for %s is not a number", string(raw), name)
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("value %s for %s must be 0 or 1", string(raw), name)
}

func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
