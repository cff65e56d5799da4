package scraper

import (
	"context"
	"fmt"

	"review-scraper/fetcher"
	"review-scraper/filter"
	"review-scraper/models"
	"review-scraper/parser"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// PageHandler receives the reviews kept from one listing page, in page order
type PageHandler func(page int, reviews []models.Review) error

// Scraper walks a paginated review listing.
// Pages are processed one at a time: fetch, extract, then decide whether to continue.
type Scraper struct {
	fetcher fetcher.Fetcher
	parser  *parser.Parser
	filter  *filter.Filter
	origin  string

	// OnPage, when set, is called after every page with the reviews kept from it
	OnPage PageHandler
	// StopBeforeStart ends pagination after a page whose dated reviews all precede the window.
	// Only valid for listings sorted newest first.
	StopBeforeStart bool
}

// Result holds the outcome of a run
type Result struct {
	Reviews []models.Review
	Pages   int
	LastURL string
}

// NewScraper creates a new Scraper; origin is prefixed to relative pagination links
func NewScraper(f fetcher.Fetcher, p *parser.Parser, flt *filter.Filter, origin string) *Scraper {
	return &Scraper{
		fetcher: f,
		parser:  p,
		filter:  flt,
		origin:  origin,
	}
}

// Run scrapes from startURL until no next page is found.
// The context is only checked between pages. On error the reviews collected so far are still returned.
func (s *Scraper) Run(ctx context.Context, startURL string) (*Result, error) {
	state := &models.PageState{URL: startURL}
	result := &Result{}
	visited := make(map[string]bool)

	defer func() {
		result.Reviews = state.Reviews
		result.LastURL = state.URL
	}()

	for !state.Done {
		if err := ctx.Err(); err != nil {
			log.Warnf("Interrupted before page %d, keeping %d reviews", state.Page+1, len(state.Reviews))
			return result, fmt.Errorf("scrape interrupted: %w", err)
		}

		state.Page++
		visited[state.URL] = true

		// A page is never abandoned halfway
		html, err := s.fetcher.Fetch(context.WithoutCancel(ctx), state.URL)
		if err != nil {
			return result, fmt.Errorf("failed to fetch page %d: %w", state.Page, err)
		}

		doc, err := parser.ParseHTML(html)
		if err != nil {
			return result, fmt.Errorf("page %d: %w", state.Page, err)
		}

		kept, stale := s.extract(doc)
		state.Reviews = append(state.Reviews, kept...)
		result.Pages = state.Page
		log.Infof("Page %d: kept %d reviews (%d total)", state.Page, len(kept), len(state.Reviews))

		if s.OnPage != nil {
			if err := s.OnPage(state.Page, kept); err != nil {
				return result, fmt.Errorf("page %d handler: %w", state.Page, err)
			}
		}

		if s.StopBeforeStart && stale {
			log.Infof("Reached reviews older than %s. Stopping.", s.filter.Window().Start.Format(models.DateLayout))
			state.Done = true
			continue
		}

		next, ok := s.parser.NextPageURL(doc, s.origin)
		if !ok {
			log.Info("No more pages found. Stopping.")
			state.Done = true
			continue
		}
		if visited[next] {
			log.Warnf("Next page %s was already visited. Stopping.", next)
			state.Done = true
			continue
		}

		log.Infof("Navigating to next page: %s", next)
		log.Infof("Total reviews collected so far: %d", len(state.Reviews))
		state.URL = next
	}

	return result, nil
}

// extract parses and filters every card of a page.
// stale is true when the page has dated reviews and all of them precede the window.
func (s *Scraper) extract(doc *goquery.Document) (kept []models.Review, stale bool) {
	kept = []models.Review{}
	dated, old := 0, 0

	for _, card := range s.parser.ParseDocument(doc) {
		review, include := s.filter.Apply(card)
		if review.Date != nil {
			dated++
			if s.filter.Stale(review) {
				old++
			}
		}
		if !include {
			continue
		}

		kept = append(kept, review)
		date := "unknown date"
		if review.Date != nil {
			date = *review.Date
		}
		log.Debugf("Collected review by %s on %s", review.ReviewerName(), date)
	}

	return kept, dated > 0 && old == dated
}
