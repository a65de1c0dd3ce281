package agent

import (
	"regexp"
	"strings"
	"time"
)

// Work dates arrive as free text from a conversational caller, in English or
// Portuguese. Parsing is biased toward the past: this feeds work logging,
// where a future work date is almost always a user error, not intent. A bare
// weekday name always means the previous occurrence of that weekday.
//
// The result is a calendar date anchored at midnight in now's location.
// Failure is reported by the second return value, never by a panic.

var relativeDays = map[string]int{
	"today":     0,
	"hoje":      0,
	"yesterday": -1,
	"ontem":     -1,
	"anteontem": -2,
	"tomorrow":  1,
	"amanhã":    1,
	"amanha":    1,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"domingo":   time.Sunday,
	"monday":    time.Monday,
	"segunda":   time.Monday,
	"tuesday":   time.Tuesday,
	"terça":     time.Tuesday,
	"terca":     time.Tuesday,
	"wednesday": time.Wednesday,
	"quarta":    time.Wednesday,
	"thursday":  time.Thursday,
	"quinta":    time.Thursday,
	"friday":    time.Friday,
	"sexta":     time.Friday,
	"saturday":  time.Saturday,
	"sábado":    time.Saturday,
	"sabado":    time.Saturday,
}

// Day-first ordering before ISO, matching the locale of the expected users.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
}

var daysAgoPattern = regexp.MustCompile(`^(?:(\d+) days? ago|h[áa] (\d+) dias?)$`)

// ParseWorkDate parses a free-form date expression relative to now. An empty
// expression defaults to today.
func ParseWorkDate(text string, now time.Time) (time.Time, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	today := midnight(now)

	if normalized == "" {
		return today, true
	}

	if offset, ok := relativeDays[normalized]; ok {
		return today.AddDate(0, 0, offset), true
	}

	if m := daysAgoPattern.FindStringSubmatch(normalized); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		n := 0
		for _, d := range digits {
			n = n*10 + int(d-'0')
		}
		return today.AddDate(0, 0, -n), true
	}

	// "segunda-feira" and "last monday" reduce to the bare weekday.
	weekdayText := strings.TrimSuffix(normalized, "-feira")
	weekdayText = strings.TrimPrefix(weekdayText, "last ")
	weekdayText = strings.TrimPrefix(weekdayText, "última ")
	weekdayText = strings.TrimPrefix(weekdayText, "ultima ")
	if target, ok := weekdays[weekdayText]; ok {
		delta := int(now.Weekday()-target+7) % 7
		if delta == 0 {
			delta = 7
		}
		return today.AddDate(0, 0, -delta), true
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, normalized, now.Location()); err == nil {
			return midnight(parsed), true
		}
	}

	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
