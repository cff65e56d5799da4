package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"review-scraper/config"
	"review-scraper/fetcher"

	"github.com/stretchr/testify/require"
)

type fakeElement struct {
	href    string
	typed   []string
	submits int
	clicks  int
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.clicks++
	return nil
}

func (e *fakeElement) TypeText(ctx context.Context, text string) error {
	e.typed = append(e.typed, text)
	return nil
}

func (e *fakeElement) Submit(ctx context.Context) error {
	e.submits++
	return nil
}

func (e *fakeElement) Attr(ctx context.Context, name string) (string, bool) {
	if name != "href" || e.href == "" {
		return "", false
	}
	return e.href, true
}

// fakeBrowser scripts the search flow; the link becomes clickable after notReady failed waits
type fakeBrowser struct {
	navigated  []string
	search     *fakeElement
	link       *fakeElement
	notReady   int
	linkWaits  int
	currentURL string
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigated = append(b.navigated, url)
	return nil
}

func (b *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	return b.currentURL, nil
}

func (b *fakeBrowser) CurrentMarkup(ctx context.Context) (string, error) {
	return "", nil
}

func (b *fakeBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (fetcher.Element, error) {
	if b.search == nil {
		return nil, fetcher.ErrNotReady
	}
	return b.search, nil
}

func (b *fakeBrowser) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (fetcher.Element, error) {
	b.linkWaits++
	if b.link == nil || b.linkWaits <= b.notReady {
		return nil, fetcher.ErrNotReady
	}
	return b.link, nil
}

func (b *fakeBrowser) Shutdown() error {
	return nil
}

func newTestNavigator(b *fakeBrowser) (*Navigator, *[]time.Duration) {
	n := NewNavigator(b, config.GetDefaultConfig())
	var slept []time.Duration
	n.sleep = func(d time.Duration) { slept = append(slept, d) }
	return n, &slept
}

func TestFindListing_FirstAttempt(t *testing.T) {
	b := &fakeBrowser{
		search: &fakeElement{},
		link:   &fakeElement{href: "/products/slack/reviews"},
	}
	n, slept := newTestNavigator(b)

	listing, err := n.FindListing(context.Background(), "Slack")
	require.NoError(t, err)

	require.Equal(t, "https://www.g2.com/products/slack/reviews", listing)
	require.Equal(t, []string{"https://www.g2.com"}, b.navigated)
	require.Equal(t, []string{"Slack"}, b.search.typed)
	require.Equal(t, 1, b.search.submits)
	require.Equal(t, 1, b.link.clicks)
	require.Equal(t, []time.Duration{3 * time.Second}, *slept)
}

func TestFindListing_RetriesUntilClickable(t *testing.T) {
	b := &fakeBrowser{
		search:   &fakeElement{},
		link:     &fakeElement{href: "https://www.g2.com/products/slack/reviews"},
		notReady: 2,
	}
	n, slept := newTestNavigator(b)

	listing, err := n.FindListing(context.Background(), "Slack")
	require.NoError(t, err)

	require.Equal(t, "https://www.g2.com/products/slack/reviews", listing)
	require.Equal(t, 3, b.linkWaits)
	require.Equal(t, []time.Duration{time.Second, time.Second, 3 * time.Second}, *slept)
}

func TestFindListing_ExhaustedRetriesContinueFromCurrentPage(t *testing.T) {
	b := &fakeBrowser{
		search:     &fakeElement{},
		currentURL: "https://www.g2.com/search?query=Slack",
	}
	n, slept := newTestNavigator(b)

	listing, err := n.FindListing(context.Background(), "Slack")
	require.NoError(t, err)

	require.Equal(t, "https://www.g2.com/search?query=Slack", listing)
	require.Equal(t, 3, b.linkWaits)
	require.Equal(t, []time.Duration{time.Second, time.Second, 3 * time.Second}, *slept)
}

func TestFindListing_ClickedLinkWithoutHref(t *testing.T) {
	b := &fakeBrowser{
		search:     &fakeElement{},
		link:       &fakeElement{},
		currentURL: "https://www.g2.com/products/slack/reviews",
	}
	n, _ := newTestNavigator(b)

	listing, err := n.FindListing(context.Background(), "Slack")
	require.NoError(t, err)
	require.Equal(t, "https://www.g2.com/products/slack/reviews", listing)
	require.Equal(t, 1, b.link.clicks)
}

func TestFindListing_MissingSearchBox(t *testing.T) {
	b := &fakeBrowser{}
	n, _ := newTestNavigator(b)

	_, err := n.FindListing(context.Background(), "Slack")
	require.Error(t, err)
	require.True(t, errors.Is(err, fetcher.ErrNotReady))
}
