package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"review-scraper/models"

	"github.com/araddon/dateparse"
)

var relativeDateRe = regexp.MustCompile(`(\d+)\s+(day|days|week|weeks|month|months|year|years)\s+ago`)

// Normalizer turns free-form date text into a calendar date
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer; now resolves relative dates and defaults to time.Now
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize parses dateStr. The second result is false when the text is not a date.
func (n *Normalizer) Normalize(dateStr string) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}

	// Relative dates like "2 months ago", "3 weeks ago"
	matches := relativeDateRe.FindStringSubmatch(strings.ToLower(dateStr))
	if len(matches) >= 3 {
		amount, err := strconv.Atoi(matches[1])
		if err == nil {
			now := n.now()
			switch matches[2] {
			case "day", "days":
				return now.AddDate(0, 0, -amount), true
			case "week", "weeks":
				return now.AddDate(0, 0, -amount*7), true
			case "month", "months":
				return now.AddDate(0, -amount, 0), true
			case "year", "years":
				return now.AddDate(-amount, 0, 0), true
			}
		}
	}

	t, err := dateparse.ParseIn(dateStr, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Filter restricts reviews to a date window
type Filter struct {
	window     models.DateWindow
	normalizer *Normalizer
}

// NewFilter creates a new Filter instance
func NewFilter(window models.DateWindow, normalizer *Normalizer) *Filter {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Filter{
		window:     window,
		normalizer: normalizer,
	}
}

// Window returns the date window the filter applies
func (f *Filter) Window() models.DateWindow {
	return f.window
}

// Apply normalizes the review date and decides whether the review is kept.
// Reviews whose date cannot be parsed are always kept, with a null normalized date.
func (f *Filter) Apply(review models.Review) (models.Review, bool) {
	review.Date = nil
	if review.DateRaw == nil {
		return review, true
	}

	parsed, ok := f.normalizer.Normalize(*review.DateRaw)
	if !ok {
		return review, true
	}

	iso := parsed.Format(models.DateLayout)
	review.Date = &iso
	review.DateRaw = nil

	return review, f.window.Contains(parsed)
}

// Stale reports whether a filtered review is dated before the window start
func (f *Filter) Stale(review models.Review) bool {
	if review.Date == nil {
		return false
	}
	d, err := time.Parse(models.DateLayout, *review.Date)
	if err != nil {
		return false
	}
	return f.window.Before(d)
}
