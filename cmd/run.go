package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"review-scraper/config"
	"review-scraper/db"
	"review-scraper/fetcher"
	"review-scraper/filter"
	"review-scraper/models"
	"review-scraper/notify"
	"review-scraper/output"
	"review-scraper/parser"
	"review-scraper/scraper"
	"review-scraper/sheets"

	log "github.com/sirupsen/logrus"
)

// newDriver starts the browser a run drives
var newDriver = func(opts fetcher.RodOptions) (fetcher.Driver, error) {
	driver, err := fetcher.NewRodDriver(opts)
	if err != nil {
		return nil, err
	}
	return driver, nil
}

// collection accumulates what a run gathered, page by page
type collection struct {
	reviews    []models.Review
	pages      int
	listingURL string
}

func run(ctx context.Context, o *options, headlessSet bool) error {
	window, err := ParseWindow(o.startDate, o.endDate, time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	if headlessSet {
		cfg.Browser.Headless = o.headless
	}

	outputPath := o.output
	if outputPath == "" {
		outputPath = output.DefaultFilename(o.company)
	}

	log.Infof("Collecting %s reviews for %s", o.company, window)

	var store *db.DB
	var dbRun *db.Run
	col := &collection{reviews: []models.Review{}}

	runErr := func() error {
		store, dbRun, err = openStore(o, window)
		if err != nil {
			return err
		}
		return collect(ctx, cfg, o, window, col, store, dbRun)
	}()
	if store != nil {
		defer store.Close()
	}

	if err := output.WriteJSON(outputPath, col.reviews); err != nil {
		err = fmt.Errorf("failed to write %s: %w", outputPath, err)
		finishStore(store, dbRun, db.StatusFailed, col, errors.Join(runErr, err))
		return &runError{code: ExitFailure, err: errors.Join(runErr, err)}
	}
	log.Infof("Wrote %d reviews to %s", len(col.reviews), outputPath)

	code := exitCode(len(col.reviews), runErr)
	finishStore(store, dbRun, statusFor(code), col, runErr)

	summary := notify.Summary{
		Company: o.company,
		Window:  window,
		Reviews: len(col.reviews),
		Pages:   col.pages,
		Output:  outputPath,
		Outcome: outcomeFor(code),
		Err:     runErr,
	}
	if o.spreadsheet != "" && len(col.reviews) > 0 {
		summary.SheetName = exportSheet(context.WithoutCancel(ctx), o, col.reviews, window)
	}
	if o.chatID != 0 {
		sendSummary(o.chatID, summary)
	}

	if runErr != nil {
		return &runError{code: code, err: runErr}
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.GetDefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded configuration from %s", path)
	return cfg, nil
}

// collect bootstraps the listing URL when needed and walks the listing.
// Reviews reach col as soon as each page is done, so a failure or a panic keeps them.
func collect(ctx context.Context, cfg *config.Config, o *options, window models.DateWindow, col *collection, store *db.DB, dbRun *db.Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scraper panicked: %v", r)
		}
	}()

	var driver fetcher.Driver
	if o.listingURL == "" || !o.static {
		driver, err = newDriver(fetcher.RodOptions{
			Headless:    cfg.Browser.Headless,
			Bin:         cfg.Browser.Bin,
			UserDataDir: cfg.Browser.UserDataDir,
		})
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer func() {
			if err := driver.Shutdown(); err != nil {
				log.Warnf("Failed to shut down browser: %v", err)
			}
		}()
	}

	col.listingURL = o.listingURL
	if col.listingURL == "" {
		col.listingURL, err = scraper.NewNavigator(driver, cfg).FindListing(ctx, o.company)
		if err != nil {
			return fmt.Errorf("failed to find %s on %s: %w", o.company, cfg.Site.Origin, err)
		}
	}
	log.Infof("Found reviews page: %s", col.listingURL)

	if store != nil {
		if err := store.UpdateRunListingURL(dbRun.ID, col.listingURL); err != nil {
			log.Warnf("Failed to record listing URL: %v", err)
		}
	}

	var f fetcher.Fetcher
	if o.static {
		f = fetcher.NewCollyFetcher("", cfg.Browser.SettleDelay)
	} else {
		f = fetcher.NewDriverFetcher(driver, cfg.Browser.SettleDelay)
	}

	s := scraper.NewScraper(f, parser.NewParser(cfg), filter.NewFilter(window, nil), cfg.Site.Origin)
	s.StopBeforeStart = o.stopAtStart
	s.OnPage = func(page int, reviews []models.Review) error {
		col.reviews = append(col.reviews, reviews...)
		col.pages = page
		if store == nil {
			return nil
		}
		return store.SaveReviews(dbRun.ID, page, reviews)
	}

	result, err := s.Run(ctx, col.listingURL)
	if result != nil {
		log.Infof("Visited %d pages, last: %s", result.Pages, result.LastURL)
	}
	return err
}

// storeConfigured reports whether the run should be recorded in Postgres
func storeConfigured(o *options) bool {
	return o.databaseURL != "" || os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""
}

// openStore connects to Postgres when a database is configured
func openStore(o *options, window models.DateWindow) (*db.DB, *db.Run, error) {
	if !storeConfigured(o) {
		return nil, nil, nil
	}

	store, err := db.NewDB(o.databaseURL)
	if err != nil {
		return nil, nil, err
	}

	dbRun, err := store.CreateRun(o.company, window)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	log.Infof("Recording run %d in the database", dbRun.ID)
	return store, dbRun, nil
}

func finishStore(store *db.DB, dbRun *db.Run, status string, col *collection, runErr error) {
	if store == nil || dbRun == nil {
		return
	}
	if err := store.FinishRun(dbRun.ID, status, len(col.reviews), col.pages, runErr); err != nil {
		log.Warnf("Failed to update run %d: %v", dbRun.ID, err)
	}
}

// exportSheet writes the reviews to a new sheet; failures are only logged
func exportSheet(ctx context.Context, o *options, reviews []models.Review, window models.DateWindow) string {
	spreadsheetID := sheets.ExtractSpreadsheetID(o.spreadsheet)
	if spreadsheetID == "" {
		log.Warnf("Could not extract spreadsheet ID from URL: %s", o.spreadsheet)
		return ""
	}

	writer, err := sheets.NewWriter(ctx, spreadsheetID, o.credentials)
	if err != nil {
		log.Warnf("Failed to initialize Google Sheets writer: %v", err)
		return ""
	}

	sheetName := fmt.Sprintf("%s %s", o.company, window)
	name, _, err := writer.CreateSheetAndWriteReviews(ctx, sheetName, reviews, o.company, window)
	if err != nil {
		log.Warnf("Failed to write to Google Sheets: %v", err)
		return ""
	}
	return name
}

func sendSummary(chatID int64, summary notify.Summary) {
	n, err := notify.NewNotifier(chatID)
	if err != nil {
		log.Warnf("Telegram notifications disabled: %v", err)
		return
	}
	if err := n.Notify(summary); err != nil {
		log.Warnf("%v", err)
	}
}

func statusFor(code int) string {
	switch code {
	case ExitOK:
		return db.StatusDone
	case ExitPartial:
		return db.StatusPartial
	default:
		return db.StatusFailed
	}
}

func outcomeFor(code int) notify.Outcome {
	switch code {
	case ExitOK:
		return notify.Succeeded
	case ExitPartial:
		return notify.Partial
	default:
		return notify.Failed
	}
}
