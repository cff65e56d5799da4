package sheets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"review-scraper/models"

	"github.com/stretchr/testify/require"
)

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Slack 2024-01-01..2024-01-31", "Slack 2024-01-01..2024-01-31"},
		{"a/b\\c?d*e[f]g:h", "a_b_c_d_e_f_g_h"},
		{"O'Reilly", "O_Reilly"},
		{"   ", "Sheet1"},
		{strings.Repeat("x", 120), strings.Repeat("x", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, sanitizeSheetName(tt.name))
		})
	}
}

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://docs.google.com/spreadsheets/d/abc123/edit", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123/edit?usp=sharing", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123?gid=0", "abc123"},
		{"abc123", "abc123"},
		{"https://example.com/nothing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			require.Equal(t, tt.expected, ExtractSpreadsheetID(tt.url))
		})
	}
}

func TestBuildValues(t *testing.T) {
	window, err := models.NewDateWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	rating := 4.5
	name := "Jane D."
	date := "2024-01-15"
	raw := "not a date"
	reviews := []models.Review{
		{
			Rating:   &rating,
			Reviewer: models.Reviewer{Name: &name, Badges: []string{"Validated Reviewer", "Verified User"}},
			Date:     &date,
			Sections: map[string]string{models.SectionPros: "fast", models.SectionCons: "pricey"},
		},
		{
			DateRaw:  &raw,
			Reviewer: models.Reviewer{Badges: []string{}},
			Sections: map[string]string{models.SectionBody: "free text"},
		},
	}

	values := buildValues(reviews, "Slack", window)
	require.Len(t, values, 4)
	require.Equal(t, []interface{}{"Company", "Slack", "Window", "2024-01-01..2024-01-31"}, values[0])
	require.Equal(t, header, values[1])

	require.Equal(t, "2024-01-15", values[2][0])
	require.Equal(t, 4.5, values[2][1])
	require.Equal(t, "Jane D.", values[2][3])
	require.Equal(t, "Validated Reviewer, Verified User", values[2][6])
	require.Equal(t, "fast", values[2][7])
	require.Equal(t, "pricey", values[2][8])

	require.Equal(t, "not a date", values[3][0])
	require.Equal(t, "", values[3][1])
	require.Equal(t, "free text", values[3][10])
	require.Len(t, values[3], len(header))
}

func TestReadCredentials(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "sa.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"type":"service_account"}`), 0o600))
	_, err := readCredentials(valid)
	require.NoError(t, err)

	user := filepath.Join(dir, "user.json")
	require.NoError(t, os.WriteFile(user, []byte(`{"type":"authorized_user"}`), 0o600))
	_, err = readCredentials(user)
	require.ErrorContains(t, err, "service account")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o600))
	_, err = readCredentials(broken)
	require.ErrorContains(t, err, "invalid credentials JSON")

	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", "  {\"type\":\"service_account\"}\n")
	_, err = readCredentials("")
	require.NoError(t, err)

	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", "")
	_, err = readCredentials("")
	require.ErrorContains(t, err, "credentials not found")
}
