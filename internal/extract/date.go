package extract

import (
	"regexp"
	"strconv"
	"time"
)

// Two-digit years are read as 20YY; there is no century window.
var dateRules = []rule[time.Time]{
	{name: "slash", re: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2,4})`), parse: monthDayYear},
	{name: "hyphen", re: regexp.MustCompile(`(\d{4}|\d{1,2})-(\d{1,2})-(\d{2,4})`), parse: hyphenated},
	{name: "iso", re: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), parse: yearMonthDay},
}

// Date returns the first valid calendar date as midnight UTC.
func Date(text string) *time.Time {
	return firstMatch(text, dateRules)
}

func monthDayYear(m []string) (time.Time, bool) {
	return calendarDate(m[3], m[1], m[2])
}

func yearMonthDay(m []string) (time.Time, bool) {
	return calendarDate(m[1], m[2], m[3])
}

// hyphenated treats a leading four-digit group as ISO, otherwise month-day-year.
func hyphenated(m []string) (time.Time, bool) {
	if len(m[1]) == 4 {
		return yearMonthDay(m)
	}
	return monthDayYear(m)
}

func calendarDate(year, month, day string) (time.Time, bool) {
	switch len(year) {
	case 2:
		year = "20" + year
	case 4:
	default:
		return time.Time{}, false
	}
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject anything that moved.
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
