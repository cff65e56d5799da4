package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"review-scraper/models"
)

// DefaultFilename derives the output file name from the company name
func DefaultFilename(company string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(company)), " ", "_")
	return fmt.Sprintf("g2_reviews_%s.json", slug)
}

// WriteJSON writes reviews to path as an indented JSON array.
// The file is written next to its destination first and renamed, so a crash never leaves half a file.
func WriteJSON(path string, reviews []models.Review) error {
	if reviews == nil {
		reviews = []models.Review{}
	}

	data, err := Marshal(reviews)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Marshal encodes reviews the way WriteJSON stores them: two-space indent, no HTML escaping
func Marshal(reviews []models.Review) ([]byte, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reviews); err != nil {
		return nil, fmt.Errorf("failed to encode reviews: %w", err)
	}
	return []byte(b.String()), nil
}
