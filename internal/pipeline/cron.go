package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronField matches one field of a 5-field cron expression.
type cronField struct {
	wildcard bool
	values   map[int]bool
}

func (f cronField) matches(v int) bool {
	return f.wildcard || f.values[v]
}

// parseCronField parses "*", "5", "1,15", "1-5", "*/15" and "10-50/10"
// within [lo, hi].
func parseCronField(field string, lo, hi int) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	values := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)

		step, stepped := 1, false
		if rng, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return cronField{}, fmt.Errorf("invalid step %q", part)
			}
			step, stepped, part = n, true, rng
		}

		from, to := lo, hi
		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var err error
			if from, err = strconv.Atoi(a); err != nil {
				return cronField{}, fmt.Errorf("invalid range %q: %w", part, err)
			}
			if to, err = strconv.Atoi(b); err != nil {
				return cronField{}, fmt.Errorf("invalid range %q: %w", part, err)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return cronField{}, fmt.Errorf("invalid value %q: %w", part, err)
			}
			from, to = v, v
			if stepped {
				to = hi
			}
		}

		if from < lo || to > hi || from > to {
			return cronField{}, fmt.Errorf("value %q out of range %d-%d", part, lo, hi)
		}
		for v := from; v <= to; v += step {
			values[v] = true
		}
	}
	return cronField{values: values}, nil
}

// cronSchedule is a parsed "minute hour day-of-month month day-of-week"
// expression. Day-of-week 7 is Sunday, like 0.
type cronSchedule struct {
	minute, hour, dom, month, dow cronField
}

func parseCron(expr string) (cronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return cronSchedule{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	bounds := [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 7}}
	names := [5]string{"minute", "hour", "day-of-month", "month", "day-of-week"}
	var parsed [5]cronField
	for i, f := range fields {
		cf, err := parseCronField(f, bounds[i][0], bounds[i][1])
		if err != nil {
			return cronSchedule{}, fmt.Errorf("parsing %s field: %w", names[i], err)
		}
		parsed[i] = cf
	}
	if parsed[4].values[7] {
		parsed[4].values[0] = true
	}

	return cronSchedule{
		minute: parsed[0],
		hour:   parsed[1],
		dom:    parsed[2],
		month:  parsed[3],
		dow:    parsed[4],
	}, nil
}

func (c cronSchedule) matches(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.month.matches(int(t.Month())) &&
		c.dayMatches(t)
}

// dayMatches follows cron's rule that a restricted day-of-month and a
// restricted day-of-week match when either does.
func (c cronSchedule) dayMatches(t time.Time) bool {
	domOK := c.dom.matches(t.Day())
	dowOK := c.dow.matches(int(t.Weekday()))
	if !c.dom.wildcard && !c.dow.wildcard {
		return domOK || dowOK
	}
	return domOK && dowOK
}

// next returns the first minute strictly after the given time that matches,
// searching up to four years ahead so "29 2 *" style schedules resolve.
func (c cronSchedule) next(after time.Time) (time.Time, error) {
	candidate := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.AddDate(4, 0, 1)

	for candidate.Before(limit) {
		y, m, d := candidate.Date()
		loc := candidate.Location()
		switch {
		case !c.month.matches(int(m)):
			candidate = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
		case !c.dayMatches(candidate):
			candidate = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		case !c.hour.matches(candidate.Hour()):
			candidate = candidate.Truncate(time.Hour).Add(time.Hour)
		case !c.minute.matches(candidate.Minute()):
			candidate = candidate.Add(time.Minute)
		default:
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no matching cron time found before %s", limit.Format(time.RFC3339))
}

// nextCronTime parses expr and returns its next firing after the given time.
func nextCronTime(expr string, after time.Time) (time.Time, error) {
	c, err := parseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	return c.next(after)
}
