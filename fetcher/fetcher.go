package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNotReady is returned when an element did not become ready before the wait timed out
var ErrNotReady = errors.New("element not ready")

// Fetcher returns the rendered markup of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Driver is the browser automation surface the scraper needs.
// A Driver owns a single browser page and must be shut down by its owner.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	CurrentMarkup(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	Shutdown() error
}

// Element is a handle to an element returned by a Driver wait
type Element interface {
	Click(ctx context.Context) error
	TypeText(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	Attr(ctx context.Context, name string) (string, bool)
}

// DriverFetcher fetches pages through a Driver, waiting a fixed delay for client-side rendering
type DriverFetcher struct {
	driver      Driver
	settleDelay time.Duration
	sleep       func(time.Duration)
}

// NewDriverFetcher creates a fetcher that navigates the driver's page
func NewDriverFetcher(driver Driver, settleDelay time.Duration) *DriverFetcher {
	return &DriverFetcher{
		driver:      driver,
		settleDelay: settleDelay,
		sleep:       time.Sleep,
	}
}

// Fetch implements the Fetcher interface
func (df *DriverFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := df.driver.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	// Give JavaScript time to render
	if df.settleDelay > 0 {
		log.Debugf("Waiting %s for %s to render", df.settleDelay, url)
		df.sleep(df.settleDelay)
	}

	html, err := df.driver.CurrentMarkup(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get HTML for %s: %w", url, err)
	}
	return html, nil
}
