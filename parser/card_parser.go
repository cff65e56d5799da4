package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"review-scraper/config"
	"review-scraper/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// The listing repeats the publication date and an edit marker as pseudo-badges
	badgeDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
)

const badgeEditMarker = "rating updated"

// ParseCard extracts a review from a single card.
// Every field is looked up independently; a missing field never stops the others.
func (p *Parser) ParseCard(card *goquery.Selection) models.Review {
	review := models.Review{
		Sections: make(map[string]string),
	}

	review.Rating = p.extractRating(card)
	review.DateRaw = p.extractDate(card)
	review.URL = attrPtr(card.Find(p.sel.CopyLink).First(), "data-clipboard-text")
	review.Title = p.extractTitle(card)
	review.Reviewer = p.extractReviewer(card)

	for _, rule := range p.sections {
		if text, ok := p.extractSection(card, rule); ok {
			review.Sections[rule.Key] = text
		}
	}

	// Cards without the structured questions fall back to the freeform body
	if len(review.Sections) == 0 {
		if body, ok := p.extractBody(card); ok {
			review.Sections[models.SectionBody] = body
		}
	}

	return review
}

// extractRating reads the numeric rating annotation
func (p *Parser) extractRating(card *goquery.Selection) *float64 {
	elem := card.Find(p.sel.Rating).First()
	if elem.Length() == 0 {
		return nil
	}

	text := contentOrText(elem)
	if text == "" {
		return nil
	}

	rating, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return nil
	}
	return &rating
}

// extractDate reads the publication date annotation as written on the page
func (p *Parser) extractDate(card *goquery.Selection) *string {
	elem := card.Find(p.sel.Date).First()
	if elem.Length() == 0 {
		return nil
	}
	return nonEmpty(contentOrText(elem))
}

// extractTitle returns the text of the title annotation's inner element,
// or its text when the annotation holds nothing but text.
func (p *Parser) extractTitle(card *goquery.Selection) *string {
	elem := card.Find(p.sel.Title)
	if p.sel.AuthorScope != "" {
		// The reviewer name shares the annotation name with the title
		elem = elem.Not(p.sel.AuthorScope + " *")
	}
	elem = elem.First()
	if elem.Length() == 0 {
		return nil
	}

	inner := elem.Children().First()
	if inner.Length() == 0 {
		return plainText(elem.Get(0))
	}
	return nonEmpty(normalizeWhitespace(inner.Text()))
}

// extractReviewer collects the author block: name, captions and badges
func (p *Parser) extractReviewer(card *goquery.Selection) models.Reviewer {
	reviewer := models.Reviewer{
		Badges: []string{},
	}

	nameElem := card.Find(p.sel.AuthorScope).Find(p.sel.AuthorName).First()
	if nameElem.Length() > 0 {
		reviewer.Name = nonEmpty(contentOrText(nameElem))
	}

	// Captions are ordered: role first, company size second
	var captions []string
	card.Find(p.sel.Caption).Each(func(i int, s *goquery.Selection) {
		captions = append(captions, normalizeWhitespace(s.Text()))
	})
	if len(captions) > 0 {
		reviewer.Role = nonEmpty(captions[0])
	}
	if len(captions) > 1 {
		reviewer.CompanySize = nonEmpty(captions[1])
	}

	card.Find(p.sel.Badge).Each(func(i int, s *goquery.Selection) {
		text := normalizeWhitespace(s.Text())
		if keepBadge(text) {
			reviewer.Badges = append(reviewer.Badges, text)
		}
	})

	return reviewer
}

// keepBadge filters out empty labels and the pseudo-badges the listing repeats
func keepBadge(text string) bool {
	if text == "" {
		return false
	}
	if badgeDatePattern.MatchString(text) {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(text), badgeEditMarker)
}

// extractSection finds the first heading carrying one of the rule's markers
// and returns the text of the next paragraph after it in document order
func (p *Parser) extractSection(card *goquery.Selection, rule config.SectionRule) (string, bool) {
	var heading *html.Node
	card.Find(p.sel.Heading).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if matchesAny(ownText(s.Nodes[0]), rule.Markers) {
			heading = s.Nodes[0]
			return false
		}
		return true
	})
	if heading == nil {
		return "", false
	}

	order := make(map[*html.Node]int)
	for i, n := range card.Find("*").Nodes {
		order[n] = i
	}
	headingPos, ok := order[heading]
	if !ok {
		return "", false
	}

	var paragraph *goquery.Selection
	card.Find(p.sel.Paragraph).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if order[s.Nodes[0]] > headingPos {
			paragraph = s
			return false
		}
		return true
	})
	if paragraph == nil {
		return "", false
	}

	return joinedText(paragraph.Nodes[0]), true
}

// extractBody joins the paragraphs of a freeform review body
func (p *Parser) extractBody(card *goquery.Selection) (string, bool) {
	body := card.Find(p.sel.Body).First()
	if body.Length() == 0 {
		return "", false
	}

	var parts []string
	body.Find(p.sel.Paragraph).Each(func(i int, s *goquery.Selection) {
		if text := joinedText(s.Nodes[0]); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		if text := joinedText(body.Nodes[0]); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// matchesAny reports whether text contains one of the markers, ignoring case
func matchesAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, marker := range markers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// ownText returns the text of n's direct text children only
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return normalizeWhitespace(b.String())
}

// plainText returns the text of n when all its children are text nodes
func plainText(n *html.Node) *string {
	if n.FirstChild == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			return nil
		}
	}
	return nonEmpty(ownText(n))
}

// joinedText collects every text node below n, trimmed and joined by single spaces
func joinedText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := normalizeWhitespace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// contentOrText prefers a microdata content attribute over the element text
func contentOrText(s *goquery.Selection) string {
	if content, ok := s.Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return normalizeWhitespace(s.Text())
}

func attrPtr(s *goquery.Selection, name string) *string {
	if s.Length() == 0 {
		return nil
	}
	value, ok := s.Attr(name)
	if !ok {
		return nil
	}
	return nonEmpty(strings.TrimSpace(value))
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizeWhitespace replaces unicode whitespace with regular spaces and collapses runs
func normalizeWhitespace(text string) string {
	normalized := strings.Builder{}
	for _, r := range text {
		if unicode.IsSpace(r) {
			normalized.WriteRune(' ')
		} else {
			normalized.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(normalized.String()), " ")
}
