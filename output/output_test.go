package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"review-scraper/models"

	"github.com/stretchr/testify/require"
)

func TestDefaultFilename(t *testing.T) {
	tests := []struct {
		company  string
		expected string
	}{
		{"Slack", "g2_reviews_slack.json"},
		{"Microsoft Teams", "g2_reviews_microsoft_teams.json"},
		{"  Zoom  ", "g2_reviews_zoom.json"},
	}

	for _, tt := range tests {
		t.Run(tt.company, func(t *testing.T) {
			require.Equal(t, tt.expected, DefaultFilename(tt.company))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rating := 4.5
	date := "2024-01-15"
	title := "Café & <friends>"
	reviews := []models.Review{
		{
			Rating:   &rating,
			Reviewer: models.Reviewer{Badges: []string{"Validated Reviewer"}},
			Date:     &date,
			Title:    &title,
			Sections: map[string]string{models.SectionPros: "fast"},
		},
		{
			Reviewer: models.Reviewer{Badges: []string{}},
			Sections: map[string]string{},
		},
	}

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, reviews))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"title": "Café & <friends>"`)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, 4.5, decoded[0]["rating"])
	require.Nil(t, decoded[1]["rating"])
	require.Nil(t, decoded[1]["date"])
	require.Equal(t, map[string]any{}, decoded[1]["sections"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, WriteJSON(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(data))
}

func TestWriteJSON_Deterministic(t *testing.T) {
	reviews := []models.Review{{Sections: map[string]string{"pros": "a", "cons": "b", "problems_solved": "c"}}}

	first, err := Marshal(reviews)
	require.NoError(t, err)
	second, err := Marshal(reviews)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWriteJSON_MissingDirectory(t *testing.T) {
	err := WriteJSON(filepath.Join(t.TempDir(), "nope", "out.json"), nil)
	require.Error(t, err)
}
