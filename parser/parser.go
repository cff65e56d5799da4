package parser

import (
	"fmt"
	"net/url"
	"strings"

	"review-scraper/config"
	"review-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// Parser extracts reviews and pagination links from listing pages
type Parser struct {
	sel        config.Selectors
	pagination config.PaginationConfig
	sections   []config.SectionRule
}

// NewParser creates a new Parser from the selector and section tables of cfg
func NewParser(cfg *config.Config) *Parser {
	return &Parser{
		sel:        cfg.Selectors,
		pagination: cfg.Pagination,
		sections:   cfg.Sections,
	}
}

// ParseHTML parses raw markup into a document
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParsePage extracts every review card on a listing page, in document order
func (p *Parser) ParsePage(htmlContent string) ([]models.Review, error) {
	doc, err := ParseHTML(htmlContent)
	if err != nil {
		return nil, err
	}
	return p.ParseDocument(doc), nil
}

// ParseDocument extracts every review card of an already parsed page
func (p *Parser) ParseDocument(doc *goquery.Document) []models.Review {
	var reviews []models.Review
	doc.Find(p.sel.Card).Each(func(i int, s *goquery.Selection) {
		reviews = append(reviews, p.ParseCard(s))
	})
	return reviews
}

// NextPageURL looks for the next page link and returns it as an absolute URL.
// An anchor whose text contains the next label wins; the pagination link class is the fallback.
func (p *Parser) NextPageURL(doc *goquery.Document, origin string) (string, bool) {
	var href string

	if p.pagination.NextText != "" {
		doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if strings.Contains(normalizeWhitespace(s.Text()), p.pagination.NextText) {
				href = strings.TrimSpace(s.AttrOr("href", ""))
				return href == ""
			}
			return true
		})
	}

	if href == "" && p.pagination.NextFallback != "" {
		doc.Find(p.pagination.NextFallback).EachWithBreak(func(i int, s *goquery.Selection) bool {
			href = strings.TrimSpace(s.AttrOr("href", ""))
			return href == ""
		})
	}

	if href == "" {
		return "", false
	}
	return ResolveURL(origin, href), true
}

// ResolveURL prefixes relative links with the site origin
func ResolveURL(origin, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base, err := url.Parse(origin)
	if err != nil {
		return strings.TrimSuffix(origin, "/") + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimSuffix(origin, "/") + href
	}
	return base.ResolveReference(ref).String()
}
