// Package recurrence computes next occurrence instants for recurring tasks.
// All functions are pure: deterministic given their inputs and the supplied
// current instant, and they never return a past instant.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/strictd/taskwarden/internal/taskerr"
)

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Rule describes a task's recurrence: either an hour interval, or a weekday
// set with an optional wall-clock time.
type Rule struct {
	IntervalHours int
	Weekdays      []time.Weekday
	TimeOfDay     string // "HH:MM", empty keeps the current wall-clock time
}

// ParseWeekdays parses a comma-separated weekday list like "mon,wed,fri".
func ParseWeekdays(spec string) ([]time.Weekday, error) {
	if spec == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(spec, ",") {
		day, ok := dayNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", taskerr.ErrInvalidRecurrenceRule, part)
		}
		days = append(days, day)
	}
	return days, nil
}

// ParseTimeOfDay parses "HH:MM" into hour and minute.
func ParseTimeOfDay(spec string) (hour, minute int, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: invalid time %q, expected HH:MM", taskerr.ErrInvalidRecurrenceRule, spec)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour %q", taskerr.ErrInvalidRecurrenceRule, parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute %q", taskerr.ErrInvalidRecurrenceRule, parts[1])
	}
	return hour, minute, nil
}

// Validate checks a rule's inputs without computing anything.
func (r Rule) Validate() error {
	if r.IntervalHours < 0 {
		return fmt.Errorf("%w: negative interval", taskerr.ErrInvalidRecurrenceRule)
	}
	if r.TimeOfDay != "" {
		if _, _, err := ParseTimeOfDay(r.TimeOfDay); err != nil {
			return err
		}
	}
	return nil
}

// NextOccurrence maps a rule to the next absolute occurrence after now.
//
// An hour interval wins over a weekday set when both are present. With a
// weekday set, days 1..7 ahead are scanned and the first day whose weekday is
// in the set is returned, at the rule's time-of-day if given, else at now's
// wall-clock time. A rule with neither defaults to now + 24h.
func NextOccurrence(now time.Time, rule Rule) (time.Time, error) {
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}

	if rule.IntervalHours > 0 {
		return now.Add(time.Duration(rule.IntervalHours) * time.Hour), nil
	}

	if len(rule.Weekdays) > 0 {
		inSet := make(map[time.Weekday]bool, len(rule.Weekdays))
		for _, d := range rule.Weekdays {
			inSet[d] = true
		}
		for ahead := 1; ahead <= 7; ahead++ {
			candidate := now.AddDate(0, 0, ahead)
			if !inSet[candidate.Weekday()] {
				continue
			}
			if rule.TimeOfDay != "" {
				hour, minute, err := ParseTimeOfDay(rule.TimeOfDay)
				if err != nil {
					return time.Time{}, err
				}
				candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
					hour, minute, 0, 0, candidate.Location())
			}
			return candidate, nil
		}
	}

	return now.Add(24 * time.Hour), nil
}

// NextDeadline recomputes a task's deadline from its anchor time-of-day:
// today at the anchor in the given location, rolling to tomorrow if that
// instant is already past.
func NextDeadline(now time.Time, anchor string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(anchor)
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)
	deadline := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !deadline.After(now) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	return deadline, nil
}
