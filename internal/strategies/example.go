package strategies

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

// Placeholders used when example.com style pages lack a field.
const (
	NoTitle   = "No title found"
	NoHeading = "No heading found"
)

// Example extracts the page title and first heading from a site root.
type Example struct{}

// Name implements scraper.Strategy.
func (Example) Name() string { return "example" }

// TargetPath implements scraper.Strategy.
func (Example) TargetPath() string { return "/" }

// Parse implements scraper.Strategy.
func (Example) Parse(doc *goquery.Document) (scraper.Result, error) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = NoTitle
	}
	heading := strings.TrimSpace(doc.Find("h1").First().Text())
	if heading == "" {
		heading = NoHeading
	}
	return scraper.One(scraper.Record{
		"title":   title,
		"heading": heading,
	}), nil
}
