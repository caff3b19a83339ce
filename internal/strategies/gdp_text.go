package strategies

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

const (
	gdpTextCountry = "United States"
	gdpTextWindow  = 70
)

var leadingNumber = regexp.MustCompile(`^\s*([\d,]+)`)

// GDPText reads the United States GDP figure by searching the page text
// rather than walking table cells. It always returns a record; failures are
// described in its "error" field.
type GDPText struct{}

// Name implements scraper.Strategy.
func (GDPText) Name() string { return "gdp-text" }

// TargetPath implements scraper.Strategy.
func (GDPText) TargetPath() string { return gdpPath }

// Parse implements scraper.Strategy.
func (GDPText) Parse(doc *goquery.Document) (scraper.Result, error) {
	record := scraper.Record{"country": gdpTextCountry, "gdp": ""}

	var text string
	if table := doc.Find("table.wikitable.sortable").First(); table.Length() > 0 {
		text = joinedText(table, "\n")
		record["text_source"] = "wikitable"
	} else {
		text = joinedText(doc.Selection, "\n")
		record["text_source"] = "full_page"
	}

	marker := "\n" + gdpTextCountry + "\n"
	pos := strings.Index(text, marker)
	if pos < 0 {
		marker = gdpTextCountry
		pos = strings.Index(text, marker)
	}
	if pos < 0 {
		record["error"] = "country marker not found in page text"
		return scraper.One(record), nil
	}

	start := pos + len(marker)
	end := start + gdpTextWindow
	if end > len(text) {
		end = len(text)
	}
	match := leadingNumber.FindStringSubmatch(text[start:end])
	if match == nil {
		record["error"] = "no number follows the country marker"
		return scraper.One(record), nil
	}
	value := match[1]
	if !strings.Contains(value, ",") && len(value) <= 4 {
		record["error"] = "number after the country marker looks like a rank or year"
		record["found_val"] = value
		return scraper.One(record), nil
	}
	if !strings.ContainsAny(value, "0123456789") {
		record["error"] = "number after the country marker has no digits"
		record["found_val"] = value
		return scraper.One(record), nil
	}
	record["gdp"] = value
	return scraper.One(record), nil
}
