package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// ResolveDate normalizes a date phrase to YYYY-MM-DD relative to now.
// Identical phrases at identical reference times always resolve identically.
func ResolveDate(phrase string, now time.Time) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return "", false
	}

	switch p {
	case "today", "tonight":
		return now.Format("2006-01-02"), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case "day after tomorrow", "the day after tomorrow":
		return now.AddDate(0, 0, 2).Format("2006-01-02"), true
	}

	if t, err := time.Parse("2006-01-02", p); err == nil {
		return t.Format("2006-01-02"), true
	}

	// "friday", "next friday", "this friday": the next occurrence strictly
	// after today.
	day := p
	day = strings.TrimPrefix(day, "next ")
	day = strings.TrimPrefix(day, "this ")
	day = strings.TrimPrefix(day, "on ")
	if wd, ok := weekdays[strings.TrimSpace(day)]; ok {
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return now.AddDate(0, 0, delta).Format("2006-01-02"), true
	}

	return "", false
}

// ResolveTime normalizes a time phrase to HH:MM in 24-hour form.
func ResolveTime(phrase string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return "", false
	}

	switch p {
	case "noon", "midday", "12pm":
		return "12:00", true
	case "midnight":
		return "00:00", true
	}

	p = strings.TrimPrefix(p, "at ")
	m := clockRe.FindStringSubmatch(strings.TrimSpace(p))
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return "", false
		}
	}

	switch m[3] {
	case "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		// Bare "3" is ambiguous; only accept explicit 24-hour HH:MM.
		if m[2] == "" {
			return "", false
		}
		if hour > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
