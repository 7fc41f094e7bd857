package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Season identifies an NBA season by the calendar year it starts in.
// Months from StartMonth through December belong to StartYear, all other
// months to StartYear+1.
type Season struct {
	StartYear  int
	StartMonth time.Month
}

// NewSeason returns the season starting in October of startYear.
func NewSeason(startYear int) Season {
	return Season{StartYear: startYear, StartMonth: time.October}
}

// String renders the season as "2023-24".
func (s Season) String() string {
	return fmt.Sprintf("%d-%02d", s.StartYear, (s.StartYear+1)%100)
}

// YearFor returns the calendar year a month falls in for this season.
func (s Season) YearFor(m time.Month) int {
	start := s.StartMonth
	if start == 0 {
		start = time.October
	}
	if m >= start {
		return s.StartYear
	}
	return s.StartYear + 1
}

// Start returns midnight UTC on the first day of the season's start month.
func (s Season) Start() time.Time {
	start := s.StartMonth
	if start == 0 {
		start = time.October
	}
	return time.Date(s.StartYear, start, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls within the twelve months from Start.
func (s Season) Contains(t time.Time) bool {
	start := s.Start()
	return !t.Before(start) && t.Before(start.AddDate(1, 0, 0))
}

// InferDate converts site-relative dates such as "Thu 10/24" or "1/3"
// into a UTC calendar date using the season to pick the year.
func (s Season) InferDate(text string) (time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("empty date")
	}
	md := fields[len(fields)-1]
	mm, dd, ok := strings.Cut(md, "/")
	if !ok {
		return time.Time{}, fmt.Errorf("date %q is not MM/DD", text)
	}
	month, err := strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("date %q has invalid month", text)
	}
	day, err := strconv.Atoi(dd)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date %q has invalid day", text)
	}
	year := s.YearFor(time.Month(month))
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("date %q does not exist in %d", text, year)
	}
	return t, nil
}

// ParseUTC parses the ISO-8601 timestamps used by JSON feeds. No season
// inference is needed; the result is normalized to UTC.
func ParseUTC(text string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// CalendarDate truncates t to midnight UTC of its calendar day.
func CalendarDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
