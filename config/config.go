package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the scraper configuration file
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Browser    BrowserConfig    `yaml:"browser"`
	Selectors  Selectors        `yaml:"selectors"`
	Pagination PaginationConfig `yaml:"pagination"`
	Retry      RetryConfig      `yaml:"retry"`
	Sections   []SectionRule    `yaml:"sections"`
}

// SiteConfig describes the review site entry points
type SiteConfig struct {
	Origin      string `yaml:"origin"`       // Prefixed to relative links
	SearchInput string `yaml:"search_input"` // Global search box on the landing page
	ProductLink string `yaml:"product_link"` // First search result pointing at a reviews listing
}

// BrowserConfig controls the headless browser
type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	Bin         string        `yaml:"bin"`           // Empty means auto-detect
	UserDataDir string        `yaml:"user_data_dir"` // Empty means a throwaway profile
	SettleDelay time.Duration `yaml:"settle_delay"`  // Fixed wait after every navigation
	WaitTimeout time.Duration `yaml:"wait_timeout"`  // Bound for element readiness waits
}

// Selectors locate the pieces of a review card
type Selectors struct {
	Card        string `yaml:"card"`
	Rating      string `yaml:"rating"`
	Date        string `yaml:"date"`
	CopyLink    string `yaml:"copy_link"`
	AuthorScope string `yaml:"author_scope"`
	AuthorName  string `yaml:"author_name"`
	Caption     string `yaml:"caption"`
	Badge       string `yaml:"badge"`
	Title       string `yaml:"title"`
	Heading     string `yaml:"heading"`
	Paragraph   string `yaml:"paragraph"`
	Body        string `yaml:"body"`
}

// PaginationConfig locates the next page affordance
type PaginationConfig struct {
	NextText     string `yaml:"next_text"`
	NextFallback string `yaml:"next_fallback"`
}

// RetryConfig bounds transient navigation retries
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// SectionRule maps heading marker phrases to a section key
type SectionRule struct {
	Key     string   `yaml:"key"`
	Markers []string `yaml:"markers"`
}

// LoadConfig loads configuration from a YAML file.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}

	cfg.Site.Origin = "https://www.g2.com"
	cfg.Site.SearchInput = "input[name='query']"
	cfg.Site.ProductLink = "a[href*='/products/'][href*='/reviews']"

	cfg.Browser.Headless = true
	cfg.Browser.SettleDelay = 3 * time.Second
	cfg.Browser.WaitTimeout = 5 * time.Second

	cfg.Selectors = Selectors{
		Card:        "div[data-poison] article",
		Rating:      "[itemprop='ratingValue']",
		Date:        "[itemprop='datePublished']",
		CopyLink:    "[data-clipboard-text]",
		AuthorScope: "[itemprop='author']",
		AuthorName:  "[itemprop='name']",
		Caption:     "div.elv-tracking-normal.elv-text-xs",
		Badge:       "label",
		Title:       "div[itemprop='name']",
		Heading:     "div, span, h3, h4, h5",
		Paragraph:   "p",
		Body:        "[itemprop='reviewBody']",
	}

	cfg.Pagination.NextText = "Next"
	cfg.Pagination.NextFallback = "a.pagination__named-link[href*='page=']"

	cfg.Retry.Attempts = 3
	cfg.Retry.Backoff = 1 * time.Second

	cfg.Sections = DefaultSections()

	return cfg
}

// DefaultSections returns the heading markers used by the review listing
func DefaultSections() []SectionRule {
	return []SectionRule{
		{Key: "pros", Markers: []string{"like best"}},
		{Key: "cons", Markers: []string{"dislike"}},
		{Key: "problems_solved", Markers: []string{"problems"}},
	}
}

// Validate checks the values that have no sensible fallback
func (c *Config) Validate() error {
	if c.Site.Origin == "" {
		return fmt.Errorf("site.origin is required")
	}
	if c.Selectors.Card == "" {
		return fmt.Errorf("selectors.card is required")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	for i, rule := range c.Sections {
		if rule.Key == "" {
			return fmt.Errorf("sections[%d]: key is required", i)
		}
		if len(rule.Markers) == 0 {
			return fmt.Errorf("sections[%d] (%s): at least one marker is required", i, rule.Key)
		}
	}
	return nil
}
