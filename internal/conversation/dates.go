package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weekdays = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	}
	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
		"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	}

	relativeDayPattern = regexp.MustCompile(`(?i)^(?:(on|this|next|coming)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday|week|weekend|month)$`)
	dayMonthPattern    = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3})[a-z]*$`)
	monthDayPattern    = regexp.MustCompile(`(?i)^([a-z]{3})[a-z]*\s+(\d{1,2})(?:st|nd|rd|th)?$`)
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?$`)
)

// ResolveAppointmentDate turns a date phrase into a calendar day relative
// to now. Numeric dates are read day first. Dates without a year that have
// already passed roll over to next year.
func ResolveAppointmentDate(phrase string, now time.Time) (time.Time, bool) {
	p := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch p {
	case "today", "tonight":
		return today, true
	case "tomorrow", "as soon as possible":
		return today.AddDate(0, 0, 1), true
	case "day after tomorrow":
		return today.AddDate(0, 0, 2), true
	case "":
		return time.Time{}, false
	}

	if m := relativeDayPattern.FindStringSubmatch(p); m != nil {
		return resolveRelative(m[1], m[2], today), true
	}
	if m := dayMonthPattern.FindStringSubmatch(p); m != nil {
		return resolveDayMonth(m[1], m[2], today)
	}
	if m := monthDayPattern.FindStringSubmatch(p); m != nil {
		return resolveDayMonth(m[2], m[1], today)
	}
	if m := numericDatePattern.FindStringSubmatch(p); m != nil {
		return resolveNumeric(m[1], m[2], m[3], today)
	}
	return time.Time{}, false
}

func resolveRelative(modifier, unit string, today time.Time) time.Time {
	switch unit {
	case "week":
		if modifier == "next" {
			return today.AddDate(0, 0, 7)
		}
		return today
	case "weekend":
		return nextWeekday(today, time.Saturday, modifier == "next")
	case "month":
		if modifier == "next" {
			return time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
		}
		return today
	}
	return nextWeekday(today, weekdays[unit], modifier == "next")
}

// nextWeekday returns the next occurrence of wd on or after today. With
// skipToday, an occurrence today is pushed out a week.
func nextWeekday(today time.Time, wd time.Weekday, skipToday bool) time.Time {
	days := (int(wd) - int(today.Weekday()) + 7) % 7
	if days == 0 && skipToday {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func resolveDayMonth(dayRaw, monthRaw string, today time.Time) (time.Time, bool) {
	month, ok := months[strings.ToLower(monthRaw)[:3]]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayRaw)
	if err != nil {
		return time.Time{}, false
	}
	return buildDate(today.Year(), month, day, today, true)
}

func resolveNumeric(dayRaw, monthRaw, yearRaw string, today time.Time) (time.Time, bool) {
	day, err := strconv.Atoi(dayRaw)
	if err != nil {
		return time.Time{}, false
	}
	monthNum, err := strconv.Atoi(monthRaw)
	if err != nil || monthNum < 1 || monthNum > 12 {
		return time.Time{}, false
	}
	if yearRaw == "" {
		return buildDate(today.Year(), time.Month(monthNum), day, today, true)
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	return buildDate(year, time.Month(monthNum), day, today, false)
}

func buildDate(year int, month time.Month, day int, today time.Time, rollover bool) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	// time.Date normalises 31 April to 1 May; treat that as invalid.
	if d.Day() != day {
		return time.Time{}, false
	}
	if rollover && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}
