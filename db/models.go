package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"review-scraper/models"

	"github.com/lib/pq"
)

// Run statuses
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
)

// Run represents one scraper invocation
type Run struct {
	ID           int
	Company      string
	StartDate    time.Time
	EndDate      time.Time
	ListingURL   sql.NullString
	Status       string
	ReviewsCount int
	PagesCount   int
	LastError    sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateRun records a new run in progress
func (db *DB) CreateRun(company string, window models.DateWindow) (*Run, error) {
	var run Run
	err := db.conn.QueryRow(`
		INSERT INTO scrape_runs (company, start_date, end_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company, start_date, end_date, listing_url, status, reviews_count, pages_count, last_error, created_at, updated_at
	`, company, window.Start, window.End, StatusInProgress).Scan(
		&run.ID, &run.Company, &run.StartDate, &run.EndDate, &run.ListingURL, &run.Status,
		&run.ReviewsCount, &run.PagesCount, &run.LastError, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateRunListingURL stores the listing URL the run paginates from
func (db *DB) UpdateRunListingURL(runID int, listingURL string) error {
	_, err := db.conn.Exec(`
		UPDATE scrape_runs
		SET listing_url = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, listingURL, runID)
	return err
}

// FinishRun sets the final status and counts of a run
func (db *DB) FinishRun(runID int, status string, reviewsCount, pagesCount int, runErr error) error {
	var lastError sql.NullString
	if runErr != nil {
		lastError = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := db.conn.Exec(`
		UPDATE scrape_runs
		SET status = $1, reviews_count = $2, pages_count = $3, last_error = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`, status, reviewsCount, pagesCount, lastError, runID)
	return err
}

// GetRunByID retrieves a run by ID
func (db *DB) GetRunByID(runID int) (*Run, error) {
	var run Run
	err := db.conn.QueryRow(`
		SELECT id, company, start_date, end_date, listing_url, status, reviews_count, pages_count, last_error, created_at, updated_at
		FROM scrape_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID, &run.Company, &run.StartDate, &run.EndDate, &run.ListingURL, &run.Status,
		&run.ReviewsCount, &run.PagesCount, &run.LastError, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveReviews stores the reviews kept from one page in a single transaction
func (db *DB) SaveReviews(runID, page int, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO reviews (run_id, page, position, rating, reviewer_name, reviewer_role, company_size,
			badges, date_raw, review_date, title, sections, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, review := range reviews {
		row, err := toRow(review)
		if err != nil {
			return err
		}

		_, err = stmt.Exec(runID, page, i+1, row.rating, row.name, row.role, row.companySize,
			pq.Array(row.badges), row.dateRaw, row.date, row.title, string(row.sections), row.url)
		if err != nil {
			return fmt.Errorf("failed to insert review (run=%d, page=%d, position=%d): %w", runID, page, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRunReviews returns the reviews of a run in the order they were collected
func (db *DB) GetRunReviews(runID int) ([]models.Review, error) {
	rows, err := db.conn.Query(`
		SELECT rating, reviewer_name, reviewer_role, company_size, badges, date_raw,
			TO_CHAR(review_date, 'YYYY-MM-DD'), title, sections, url
		FROM reviews
		WHERE run_id = $1
		ORDER BY page ASC, position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var row reviewRow
		var badges pq.StringArray
		err := rows.Scan(&row.rating, &row.name, &row.role, &row.companySize, &badges,
			&row.dateRaw, &row.date, &row.title, &row.sections, &row.url)
		if err != nil {
			return nil, err
		}
		row.badges = badges

		review, err := row.toReview()
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// reviewRow is the column-level form of a review
type reviewRow struct {
	rating      sql.NullFloat64
	name        sql.NullString
	role        sql.NullString
	companySize sql.NullString
	badges      []string
	dateRaw     sql.NullString
	date        sql.NullString
	title       sql.NullString
	sections    []byte
	url         sql.NullString
}

func toRow(review models.Review) (reviewRow, error) {
	sections := review.Sections
	if sections == nil {
		sections = map[string]string{}
	}
	encoded, err := json.Marshal(sections)
	if err != nil {
		return reviewRow{}, fmt.Errorf("failed to encode sections: %w", err)
	}

	badges := review.Reviewer.Badges
	if badges == nil {
		badges = []string{}
	}

	row := reviewRow{
		rating:      nullFloat(review.Rating),
		name:        nullString(review.Reviewer.Name),
		role:        nullString(review.Reviewer.Role),
		companySize: nullString(review.Reviewer.CompanySize),
		badges:      badges,
		dateRaw:     nullString(review.DateRaw),
		date:        nullString(review.Date),
		title:       nullString(review.Title),
		sections:    encoded,
		url:         nullString(review.URL),
	}
	return row, nil
}

func (r reviewRow) toReview() (models.Review, error) {
	sections := map[string]string{}
	if len(r.sections) > 0 {
		if err := json.Unmarshal(r.sections, &sections); err != nil {
			return models.Review{}, fmt.Errorf("failed to decode sections: %w", err)
		}
	}

	badges := r.badges
	if badges == nil {
		badges = []string{}
	}

	review := models.Review{
		Rating: floatPtr(r.rating),
		Reviewer: models.Reviewer{
			Name:        stringPtr(r.name),
			Role:        stringPtr(r.role),
			CompanySize: stringPtr(r.companySize),
			Badges:      badges,
		},
		DateRaw:  stringPtr(r.dateRaw),
		Date:     stringPtr(r.date),
		Title:    stringPtr(r.title),
		Sections: sections,
		URL:      stringPtr(r.url),
	}
	return review, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}
