package scraper

import (
	"context"
	"fmt"
	"time"

	"review-scraper/config"
	"review-scraper/fetcher"
	"review-scraper/parser"

	log "github.com/sirupsen/logrus"
)

// Navigator finds a company's review listing through the site search
type Navigator struct {
	driver      fetcher.Driver
	site        config.SiteConfig
	retry       config.RetryConfig
	waitTimeout time.Duration
	settleDelay time.Duration
	sleep       func(time.Duration)
}

// NewNavigator creates a Navigator driving the given browser
func NewNavigator(driver fetcher.Driver, cfg *config.Config) *Navigator {
	return &Navigator{
		driver:      driver,
		site:        cfg.Site,
		retry:       cfg.Retry,
		waitTimeout: cfg.Browser.WaitTimeout,
		settleDelay: cfg.Browser.SettleDelay,
		sleep:       time.Sleep,
	}
}

// FindListing searches for company and opens the first product reviews result.
// If the result never becomes clickable the failure is logged and the current page URL is returned.
func (n *Navigator) FindListing(ctx context.Context, company string) (string, error) {
	log.Infof("Navigating to %s...", n.site.Origin)
	if err := n.driver.Navigate(ctx, n.site.Origin); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", n.site.Origin, err)
	}

	search, err := n.driver.WaitVisible(ctx, n.site.SearchInput, n.waitTimeout)
	if err != nil {
		return "", fmt.Errorf("search box not available: %w", err)
	}

	log.Infof("Searching for company: %s", company)
	if err := search.TypeText(ctx, company); err != nil {
		return "", fmt.Errorf("failed to type company name: %w", err)
	}
	if err := search.Submit(ctx); err != nil {
		return "", fmt.Errorf("failed to submit search: %w", err)
	}

	href, opened := n.openFirstResult(ctx)

	// Wait for the reviews page to load
	if n.settleDelay > 0 {
		n.sleep(n.settleDelay)
	}

	if href != "" {
		return parser.ResolveURL(n.site.Origin, href), nil
	}

	current, err := n.driver.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read current page URL: %w", err)
	}
	if !opened {
		log.Warnf("Could not open the reviews page for %s, continuing from %s", company, current)
	}
	return current, nil
}

// openFirstResult clicks the first product reviews link, retrying while it is not ready.
// It returns the link target when known and whether a click went through.
func (n *Navigator) openFirstResult(ctx context.Context) (string, bool) {
	for attempt := 1; attempt <= n.retry.Attempts; attempt++ {
		link, err := n.driver.WaitClickable(ctx, n.site.ProductLink, n.waitTimeout)
		if err == nil {
			href, _ := link.Attr(ctx, "href")
			if err = link.Click(ctx); err == nil {
				log.Info("Navigating to company reviews page...")
				return href, true
			}
		}

		log.Warnf("Error occurred while navigating (attempt %d/%d): %v", attempt, n.retry.Attempts, err)
		if attempt < n.retry.Attempts {
			n.sleep(n.retry.Backoff)
		}
	}
	return "", false
}
