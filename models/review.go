package models

import (
	"fmt"
	"time"
)

// Section keys used in Review.Sections
const (
	SectionPros           = "pros"
	SectionCons           = "cons"
	SectionProblemsSolved = "problems_solved"
	SectionBody           = "body"
)

// DateLayout is the ISO calendar date form used for normalized dates
const DateLayout = "2006-01-02"

// Review represents a single review card scraped from a listing page.
// Optional values are nil when the source omits them.
type Review struct {
	Rating   *float64          `json:"rating"`
	Reviewer Reviewer          `json:"reviewer"`
	DateRaw  *string           `json:"date_raw,omitempty"` // Only kept while the date could not be normalized
	Date     *string           `json:"date"`
	Title    *string           `json:"title"`
	Sections map[string]string `json:"sections"`
	URL      *string           `json:"url"`
}

// Reviewer holds the author metadata shown next to a review
type Reviewer struct {
	Name        *string  `json:"name"`
	Role        *string  `json:"role"`
	CompanySize *string  `json:"company_size"`
	Badges      []string `json:"badges"`
}

// ReviewerName returns the reviewer name or a placeholder for status lines
func (r Review) ReviewerName() string {
	if r.Reviewer.Name == nil || *r.Reviewer.Name == "" {
		return "unknown reviewer"
	}
	return *r.Reviewer.Name
}

// DateWindow is an inclusive range of calendar dates
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow builds a window from two ISO dates (YYYY-MM-DD)
func NewDateWindow(start, end string) (DateWindow, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return DateWindow{Start: s, End: e}, nil
}

// Contains reports whether the calendar date of t lies within the window, both ends included.
// The comparison uses the date as written in t's own location.
func (w DateWindow) Contains(t time.Time) bool {
	d := CalendarDate(t)
	return !d.Before(CalendarDate(w.Start)) && !d.After(CalendarDate(w.End))
}

// Before reports whether the calendar date of t is earlier than the window start
func (w DateWindow) Before(t time.Time) bool {
	return CalendarDate(t).Before(CalendarDate(w.Start))
}

// String formats the window as start..end
func (w DateWindow) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

// CalendarDate strips the clock and location from t, keeping its local calendar date
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PageState tracks the pagination loop between page transitions
type PageState struct {
	URL     string
	Page    int // 1-based number of the page currently being processed
	Reviews []Review
	Done    bool
}
