package schedule

import (
	"fmt"
	"time"

	"github.com/thatsimonsguy/aquarium-controller/internal/model"
)

// ParseRule builds a same-day rule. Rules that wrap past midnight are rejected.
func ParseRule(start, end string) (model.ScheduleRule, error) {
	s, err := model.ParseTimeOfDay(start)
	if err != nil {
		return model.ScheduleRule{}, fmt.Errorf("schedule start: %w", err)
	}
	e, err := model.ParseTimeOfDay(end)
	if err != nil {
		return model.ScheduleRule{}, fmt.Errorf("schedule end: %w", err)
	}
	if s > e {
		return model.ScheduleRule{}, fmt.Errorf("schedule %s-%s crosses midnight, which is not supported", start, end)
	}
	return model.ScheduleRule{Start: s, End: e}, nil
}

// IsActive reports whether now falls within the rule, bounds inclusive.
func IsActive(rule model.ScheduleRule, now time.Time) bool {
	t := model.TimeOfDayOf(now)
	return rule.Start <= t && t <= rule.End
}

// Overlaps reports whether two rules share at least one second.
func Overlaps(a, b model.ScheduleRule) bool {
	return a.Start <= b.End && b.Start <= a.End
}
