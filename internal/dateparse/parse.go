// Package dateparse extracts natural-language date phrases from task titles.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"daily-planner/internal/timeutil"
)

var (
	phrasePattern = regexp.MustCompile(`(?i)\b(today|tomorrow|in\s+(\d{1,4})\s+days?|sun(?:day)?|mon(?:day)?|tue(?:s|sday)?|wed(?:nesday)?|thu(?:rs|rsday)?|fri(?:day)?|sat(?:urday)?)\b`)
	spacePattern  = regexp.MustCompile(`\s+`)

	weekdays = map[string]time.Weekday{
		"sun": time.Sunday,
		"mon": time.Monday,
		"tue": time.Tuesday,
		"wed": time.Wednesday,
		"thu": time.Thursday,
		"fri": time.Friday,
		"sat": time.Saturday,
	}
)

// Result is the outcome of scanning a line of text.
type Result struct {
	// Title is the input with the recognised phrase removed.
	Title string
	// Date is the resolved day as UTC midnight, nil when nothing matched.
	Date *time.Time
}

// Parse scans text for the first date phrase relative to ref.
//
// Recognised (case-insensitive): "today", "tomorrow", "in N day(s)" and weekday
// names ("fri", "friday"). A weekday resolves to its next occurrence strictly
// after ref, so the same weekday as ref means a week ahead. When nothing matches
// the text is returned unchanged with a nil date.
func Parse(text string, ref time.Time) Result {
	loc := phrasePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Result{Title: text}
	}

	base := timeutil.DayStart(ref)
	phrase := strings.ToLower(text[loc[2]:loc[3]])

	var due time.Time
	switch {
	case phrase == "today":
		due = base
	case phrase == "tomorrow":
		due = timeutil.AddDays(base, 1)
	case strings.HasPrefix(phrase, "in"):
		n, err := strconv.Atoi(text[loc[4]:loc[5]])
		if err != nil {
			return Result{Title: text}
		}
		due = timeutil.AddDays(base, n)
	default:
		day, ok := weekdays[phrase[:3]]
		if !ok {
			return Result{Title: text}
		}
		due = nextWeekday(base, day)
	}

	stripped := text[:loc[0]] + " " + text[loc[1]:]
	stripped = strings.TrimSpace(spacePattern.ReplaceAllString(stripped, " "))
	return Result{Title: stripped, Date: &due}
}

func nextWeekday(base time.Time, day time.Weekday) time.Time {
	delta := (int(day) - int(base.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return timeutil.AddDays(base, delta)
}
