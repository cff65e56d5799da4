package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"review-scraper/models"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var header = []interface{}{
	"Date", "Rating", "Title", "Reviewer", "Role", "Company Size", "Badges",
	"Pros", "Cons", "Problems Solved", "Body", "URL",
}

// Writer exports reviews to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer.
// Credentials come from credentialsPath or the GOOGLE_SHEETS_CREDENTIALS environment variable.
func NewWriter(ctx context.Context, spreadsheetID string, credentialsPath string) (*Writer, error) {
	credsJSON, err := readCredentials(credentialsPath)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

func readCredentials(credentialsPath string) ([]byte, error) {
	var credsJSON []byte

	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		log.Debugf("Reading credentials from GOOGLE_SHEETS_CREDENTIALS environment variable (%d bytes)", len(credsEnv))
		credsJSON = []byte(credsEnv)
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	return credsJSON, nil
}

// CreateSheetAndWriteReviews creates a new sheet at the front of the spreadsheet and writes reviews to it.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteReviews(ctx context.Context, sheetName string, reviews []models.Review, company string, window models.DateWindow) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title:           sheetName,
						Index:           0,
						ForceSendFields: []string{"Index"},
					},
				},
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}
	log.Infof("Created sheet '%s' with ID %d", sheetName, sheetID)

	valueRange := &sheets.ValueRange{
		Values: buildValues(reviews, company, window),
	}

	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("'%s'!A1", sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	log.Infof("Successfully wrote %d reviews to sheet '%s'", len(reviews), sheetName)
	return sheetName, sheetID, nil
}

// buildValues lays out the metadata row, the header and one row per review
func buildValues(reviews []models.Review, company string, window models.DateWindow) [][]interface{} {
	values := make([][]interface{}, 0, len(reviews)+2)
	values = append(values, []interface{}{"Company", company, "Window", window.String()})
	values = append(values, header)

	for _, r := range reviews {
		date := deref(r.Date)
		if date == "" {
			date = deref(r.DateRaw)
		}

		var rating interface{} = ""
		if r.Rating != nil {
			rating = *r.Rating
		}

		values = append(values, []interface{}{
			date,
			rating,
			deref(r.Title),
			deref(r.Reviewer.Name),
			deref(r.Reviewer.Role),
			deref(r.Reviewer.CompanySize),
			strings.Join(r.Reviewer.Badges, ", "),
			r.Sections[models.SectionPros],
			r.Sections[models.SectionCons],
			r.Sections[models.SectionProblemsSolved],
			r.Sections[models.SectionBody],
			deref(r.URL),
		})
	}
	return values
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] :
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", ":", "'"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	if runes := []rune(result); len(runes) > 100 {
		result = string(runes[:100])
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is returned unchanged.
func ExtractSpreadsheetID(url string) string {
	url = strings.TrimSpace(url)
	if !strings.Contains(url, "/") {
		return url
	}

	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
