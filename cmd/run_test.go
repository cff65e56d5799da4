package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"review-scraper/fetcher"

	"github.com/stretchr/testify/require"
)

const testOrigin = "https://reviews.test"

// fakeBrowser stands in for the rod driver; pages are served from memory
type fakeBrowser struct {
	listingURL    string
	pages         map[string]string
	failNavigate  string
	panicOnMarkup bool
	onMarkup      func()

	current   string
	navigated []string
	shutdowns int
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigated = append(b.navigated, url)
	if url == b.failNavigate {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	b.current = url
	return nil
}

func (b *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	return b.current, nil
}

func (b *fakeBrowser) CurrentMarkup(ctx context.Context) (string, error) {
	if b.panicOnMarkup {
		panic("renderer crashed")
	}
	if b.onMarkup != nil {
		b.onMarkup()
	}
	return b.pages[b.current], nil
}

func (b *fakeBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (fetcher.Element, error) {
	return &searchBox{browser: b}, nil
}

func (b *fakeBrowser) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (fetcher.Element, error) {
	return nil, fetcher.ErrNotReady
}

func (b *fakeBrowser) Shutdown() error {
	b.shutdowns++
	return nil
}

// searchBox lands the browser on the listing when the search is submitted
type searchBox struct {
	browser *fakeBrowser
}

func (s *searchBox) Click(ctx context.Context) error { return nil }

func (s *searchBox) TypeText(ctx context.Context, text string) error { return nil }

func (s *searchBox) Attr(ctx context.Context, name string) (string, bool) { return "", false }

func (s *searchBox) Submit(ctx context.Context) error {
	s.browser.current = s.browser.listingURL
	return nil
}

func useBrowser(t *testing.T, b *fakeBrowser) *int {
	t.Helper()
	started := 0
	previous := newDriver
	newDriver = func(fetcher.RodOptions) (fetcher.Driver, error) {
		started++
		return b, nil
	}
	t.Cleanup(func() { newDriver = previous })
	return &started
}

func browserOptions(t *testing.T) *options {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	return &options{
		company:    "Acme",
		startDate:  "2024-01-01",
		endDate:    "2024-01-31",
		output:     filepath.Join(t.TempDir(), "out.json"),
		configPath: writeConfig(t, testOrigin),
	}
}

func twoPageListing() *fakeBrowser {
	listing := testOrigin + "/products/acme/reviews"
	return &fakeBrowser{
		listingURL: listing,
		pages: map[string]string{
			listing: fmtPage(reviewCard("first", "January 10, 2024"), `<a href="/products/acme/reviews?page=2">Next</a>`),
			listing + "?page=2": fmtPage(reviewCard("second", "January 11, 2024"), ""),
		},
	}
}

func fmtPage(cards, links string) string {
	return "<html><body><div data-poison=\"\">" + cards + "</div>" + links + "</body></html>"
}

func TestRun_BrowserReleasedAfterPanic(t *testing.T) {
	b := twoPageListing()
	b.panicOnMarkup = true
	useBrowser(t, b)

	o := browserOptions(t)
	o.listingURL = b.listingURL

	err := run(context.Background(), o, false)
	require.ErrorContains(t, err, "panicked")
	require.Equal(t, ExitFailure, ExitCodeFor(err))
	require.Equal(t, 1, b.shutdowns)
	require.Empty(t, readReviews(t, o.output))
}

func TestRun_BrowserReleasedAfterFetchError(t *testing.T) {
	b := twoPageListing()
	b.failNavigate = b.listingURL + "?page=2"
	started := useBrowser(t, b)

	// No listing URL: the search result never becomes clickable and the run continues from the page the search landed on
	o := browserOptions(t)

	err := run(context.Background(), o, false)
	require.ErrorContains(t, err, "page 2")
	require.Equal(t, ExitPartial, ExitCodeFor(err))
	require.Equal(t, 1, *started)
	require.Equal(t, 1, b.shutdowns)
	require.Equal(t, []string{testOrigin, b.listingURL, b.failNavigate}, b.navigated)

	reviews := readReviews(t, o.output)
	require.Len(t, reviews, 1)
	require.Equal(t, "first", *reviews[0].Title)
}

func TestRun_BrowserReleasedAfterInterrupt(t *testing.T) {
	b := twoPageListing()
	useBrowser(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.onMarkup = cancel

	o := browserOptions(t)
	o.listingURL = b.listingURL

	err := run(ctx, o, false)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ExitPartial, ExitCodeFor(err))
	require.Equal(t, 1, b.shutdowns)
	require.Equal(t, []string{b.listingURL}, b.navigated, "the page in flight finishes, the next one is never requested")

	reviews := readReviews(t, o.output)
	require.Len(t, reviews, 1)
	require.Equal(t, "first", *reviews[0].Title)
}

func TestRun_BrowserReleasedAfterSuccess(t *testing.T) {
	b := twoPageListing()
	useBrowser(t, b)

	o := browserOptions(t)
	o.listingURL = b.listingURL

	require.NoError(t, run(context.Background(), o, false))
	require.Equal(t, 1, b.shutdowns)
	require.Len(t, readReviews(t, o.output), 2)
}

func TestRun_BrowserFailsToStart(t *testing.T) {
	previous := newDriver
	newDriver = func(fetcher.RodOptions) (fetcher.Driver, error) {
		return nil, errors.New("chromium not found")
	}
	t.Cleanup(func() { newDriver = previous })

	o := browserOptions(t)

	err := run(context.Background(), o, false)
	require.ErrorContains(t, err, "chromium not found")
	require.Equal(t, ExitFailure, ExitCodeFor(err))
	require.Empty(t, readReviews(t, o.output))
}

func TestRun_StaticListingNeverStartsBrowser(t *testing.T) {
	server := newListingServer(t, false)
	started := useBrowser(t, &fakeBrowser{})

	require.NoError(t, run(context.Background(), staticOptions(t, server), false))
	require.Zero(t, *started)
}
