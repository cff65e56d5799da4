package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `
site:
  origin: https://reviews.example.com
browser:
  settle_delay: 500ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "https://reviews.example.com", cfg.Site.Origin)
	require.Equal(t, 500*time.Millisecond, cfg.Browser.SettleDelay)
	require.Equal(t, 5*time.Second, cfg.Browser.WaitTimeout)
	require.Equal(t, "div[data-poison] article", cfg.Selectors.Card)
	require.Equal(t, 3, cfg.Retry.Attempts)
	require.Equal(t, DefaultSections(), cfg.Sections)
}

func TestLoadConfig_ReplacesSectionTable(t *testing.T) {
	path := writeConfig(t, `
sections:
  - key: pros
    markers: ["what i like", "like best"]
  - key: recommendations
    markers: ["recommendations"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, []SectionRule{
		{Key: "pros", Markers: []string{"what i like", "like best"}},
		{Key: "recommendations", Markers: []string{"recommendations"}},
	}, cfg.Sections)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "site: [unterminated"},
		{"empty origin", "site:\n  origin: \"\"\n"},
		{"zero attempts", "retry:\n  attempts: 0\n"},
		{"section without markers", "sections:\n  - key: pros\n"},
		{"section without key", "sections:\n  - markers: [x]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, GetDefaultConfig().Validate())
}
