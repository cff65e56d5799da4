package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// RodOptions configures the headless browser
type RodOptions struct {
	Headless    bool
	Bin         string // Browser binary; auto-detected when empty
	UserDataDir string // Profile directory; a throwaway one when empty
}

// Common Chrome/Chromium locations, checked in order when no binary is configured
var browserPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// RodDriver implements the Driver interface using rod (headless browser)
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// NewRodDriver launches a browser and opens the page the driver works on
func NewRodDriver(opts RodOptions) (*RodDriver, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Leakless(false). // Disable leakless to avoid antivirus issues
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-breakpad").
		Set("disable-default-apps").
		Set("disable-popup-blocking").
		Set("disable-sync").
		Set("disable-translate").
		Set("mute-audio").
		Set("window-size", "1920,1080")

	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			log.Warnf("Failed to create browser data directory %s, using a temporary profile: %v", opts.UserDataDir, err)
		} else {
			l = l.UserDataDir(opts.UserDataDir)
		}
	}

	if bin := findBrowser(opts.Bin); bin != "" {
		log.Debugf("Using browser binary %s", bin)
		l = l.Bin(bin)
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w\n\nNote: On Linux, you may need to install Chromium dependencies:\n  apt-get update && apt-get install -y chromium chromium-sandbox || yum install -y chromium", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &RodDriver{
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

// findBrowser returns the configured binary, or the first installed one from browserPaths.
// An empty result lets rod download its own Chromium.
func findBrowser(configured string) string {
	if configured != "" {
		return configured
	}
	for _, path := range browserPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Shutdown closes the browser and kills the process. Safe to call more than once.
func (rd *RodDriver) Shutdown() error {
	rd.closeOnce.Do(func() {
		if rd.browser != nil {
			rd.closeErr = rd.browser.Close()
		}
		if rd.launcher != nil {
			rd.launcher.Kill()
		}
	})
	return rd.closeErr
}

// Navigate opens url and waits for the load event
func (rd *RodDriver) Navigate(ctx context.Context, url string) error {
	page := rd.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// CurrentURL returns the URL the page is showing
func (rd *RodDriver) CurrentURL(ctx context.Context) (string, error) {
	info, err := rd.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to get page info: %w", err)
	}
	return info.URL, nil
}

// CurrentMarkup returns the rendered HTML of the page
func (rd *RodDriver) CurrentMarkup(ctx context.Context) (string, error) {
	html, err := rd.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// WaitVisible waits until an element matching selector is visible
func (rd *RodDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := rd.waitElement(ctx, selector, timeout, func(el *rod.Element) error {
		return el.WaitVisible()
	})
	if err != nil {
		return nil, err
	}
	return &rodElement{el: el}, nil
}

// WaitClickable waits until an element matching selector is visible and not covered
func (rd *RodDriver) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := rd.waitElement(ctx, selector, timeout, func(el *rod.Element) error {
		if err := el.WaitVisible(); err != nil {
			return err
		}
		_, err := el.WaitInteractable()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &rodElement{el: el}, nil
}

func (rd *RodDriver) waitElement(ctx context.Context, selector string, timeout time.Duration, ready func(*rod.Element) error) (*rod.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := rd.page.Context(waitCtx).Element(selector)
	if err == nil {
		err = ready(el)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrNotReady, selector, timeout)
		}
		return nil, fmt.Errorf("failed to wait for %s: %w", selector, err)
	}

	// Detach the element from the wait deadline
	return el.Context(ctx), nil
}

// rodElement adapts a rod element to the Element interface
type rodElement struct {
	el *rod.Element
}

// Click clicks the element, falling back to a script click when the mouse is intercepted
func (re *rodElement) Click(ctx context.Context) error {
	el := re.el.Context(ctx)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.Debugf("Mouse click failed, using script click: %v", err)
		if _, evalErr := el.Eval(`() => this.click()`); evalErr != nil {
			return fmt.Errorf("failed to click element: %w", errors.Join(err, evalErr))
		}
	}
	return nil
}

// TypeText replaces the element's value with text
func (re *rodElement) TypeText(ctx context.Context, text string) error {
	el := re.el.Context(ctx)
	if err := el.Focus(); err != nil {
		return fmt.Errorf("failed to focus element: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to clear element: %w", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("failed to type text: %w", err)
	}
	return nil
}

// Submit presses Enter on the element
func (re *rodElement) Submit(ctx context.Context) error {
	if err := re.el.Context(ctx).Type(input.Enter); err != nil {
		return fmt.Errorf("failed to submit: %w", err)
	}
	return nil
}

// Attr returns the value of an attribute
func (re *rodElement) Attr(ctx context.Context, name string) (string, bool) {
	value, err := re.el.Context(ctx).Attribute(name)
	if err != nil || value == nil {
		return "", false
	}
	return *value, true
}
