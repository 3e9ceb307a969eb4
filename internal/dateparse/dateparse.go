// Package dateparse parses natural language dates for list filters.
package dateparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parse parses a natural language date string and returns a date in
// YYYY-MM-DD format. Supported formats:
//   - today, tomorrow, yesterday
//   - monday, tuesday, ... (next occurrence, same day = next week)
//   - last monday, last tuesday, ... (most recent past occurrence)
//   - last week, last month (one week/month back)
//   - next week, next month
//   - eow (end of week - Friday), eom (end of month)
//   - -N / +N (N days back or forward)
//   - N days ago, N weeks ago
//   - in N days, in N weeks
//   - YYYY-MM-DD (passthrough)
//
// Unrecognized input is returned as-is; use IsValid or Time to detect it.
func Parse(input string) string {
	return ParseFrom(input, time.Now())
}

// ParseFrom parses a date relative to the given reference time.
func ParseFrom(input string, now time.Time) string {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "today":
		return formatDate(now)
	case "tomorrow":
		return formatDate(now.AddDate(0, 0, 1))
	case "yesterday":
		return formatDate(now.AddDate(0, 0, -1))
	case "last week", "lastweek":
		return formatDate(now.AddDate(0, 0, -7))
	case "last month", "lastmonth":
		return formatDate(now.AddDate(0, -1, 0))
	case "next week", "nextweek":
		return formatDate(now.AddDate(0, 0, 7))
	case "next month", "nextmonth":
		return formatDate(now.AddDate(0, 1, 0))
	case "end of week", "eow":
		return formatDate(nextWeekday(now, time.Friday, false))
	case "end of month", "eom":
		return formatDate(endOfMonth(now))
	}

	// Weekday names
	if day, ok := parseWeekday(input); ok {
		if strings.HasPrefix(input, "last ") {
			return formatDate(lastWeekday(now, day))
		}
		next := strings.HasPrefix(input, "next ")
		return formatDate(nextWeekday(now, day, next))
	}

	// +N / -N days format
	if strings.HasPrefix(input, "+") || strings.HasPrefix(input, "-") {
		if days, err := strconv.Atoi(input); err == nil {
			return formatDate(now.AddDate(0, 0, days))
		}
	}

	// "N days ago" / "N weeks ago" format
	if match := daysAgoPattern.FindStringSubmatch(input); match != nil {
		if days, err := strconv.Atoi(match[1]); err == nil {
			return formatDate(now.AddDate(0, 0, -days))
		}
	}
	if match := weeksAgoPattern.FindStringSubmatch(input); match != nil {
		if weeks, err := strconv.Atoi(match[1]); err == nil {
			return formatDate(now.AddDate(0, 0, -weeks*7))
		}
	}

	// "in N days" / "in N weeks" format
	if match := inDaysPattern.FindStringSubmatch(input); match != nil {
		if days, err := strconv.Atoi(match[1]); err == nil {
			return formatDate(now.AddDate(0, 0, days))
		}
	}
	if match := inWeeksPattern.FindStringSubmatch(input); match != nil {
		if weeks, err := strconv.Atoi(match[1]); err == nil {
			return formatDate(now.AddDate(0, 0, weeks*7))
		}
	}

	// YYYY-MM-DD passthrough
	if datePattern.MatchString(input) {
		return input
	}

	// Return as-is if not recognized
	return input
}

var (
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	inDaysPattern   = regexp.MustCompile(`^in (\d+) days?$`)
	inWeeksPattern  = regexp.MustCompile(`^in (\d+) weeks?$`)
	daysAgoPattern  = regexp.MustCompile(`^(\d+) days? ago$`)
	weeksAgoPattern = regexp.MustCompile(`^(\d+) weeks? ago$`)
)

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseWeekday(input string) (time.Weekday, bool) {
	input = strings.TrimPrefix(input, "next ")
	input = strings.TrimPrefix(input, "last ")

	switch input {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

// nextWeekday returns the next occurrence of the given weekday.
// If forceNext is true ("next monday"), it returns the Monday after this week's.
// If forceNext is false ("monday"), it returns the nearest future occurrence.
// Special case: if today IS the target weekday, both return 7 days (next week).
func nextWeekday(now time.Time, target time.Weekday, forceNext bool) time.Time {
	current := now.Weekday()
	daysUntil := int(target - current)
	sameDay := daysUntil == 0

	if daysUntil <= 0 {
		// Same day or past day this week = go to next week
		daysUntil += 7
	}

	if forceNext && !sameDay {
		// "next monday" means the one after this week's Monday
		// But if today IS Monday, "next monday" = this coming Monday (7 days)
		daysUntil += 7
	}

	return now.AddDate(0, 0, daysUntil)
}

// endOfMonth returns the last day of the current month.
func endOfMonth(now time.Time) time.Time {
	year, month, _ := now.Date()
	firstOfNextMonth := time.Date(year, month+1, 1, 0, 0, 0, 0, now.Location())
	return firstOfNextMonth.AddDate(0, 0, -1)
}

// lastWeekday returns the most recent past occurrence of the given weekday.
// If today IS the target weekday, it returns 7 days back.
func lastWeekday(now time.Time, target time.Weekday) time.Time {
	daysBack := int(now.Weekday() - target)
	if daysBack <= 0 {
		daysBack += 7
	}
	return now.AddDate(0, 0, -daysBack)
}

// IsValid returns true if the input is a recognized date format.
func IsValid(input string) bool {
	result := Parse(input)
	// If the result matches the YYYY-MM-DD pattern, it was successfully parsed
	return datePattern.MatchString(result)
}

// Time parses input and returns it as a UTC midnight time.Time, for
// callers that need a timestamp rather than a display date.
func Time(input string) (time.Time, error) {
	return TimeFrom(input, time.Now())
}

// TimeFrom is Time relative to the given reference time.
func TimeFrom(input string, now time.Time) (time.Time, error) {
	result := ParseFrom(input, now)
	if !datePattern.MatchString(result) {
		return time.Time{}, errors.New("dateparse: unrecognized date: " + input)
	}
	return time.Parse("2006-01-02", result)
}

// MustParse parses a date and panics if it fails.
// Use this only for known-good inputs like constants.
func MustParse(input string) string {
	result := Parse(input)
	if !datePattern.MatchString(result) {
		panic("dateparse: invalid date: " + input)
	}
	return result
}
