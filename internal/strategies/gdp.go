package strategies

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

const gdpPath = "/wiki/List_of_countries_by_GDP_(nominal)"

var gdpAggregates = map[string]struct{}{
	"country":        {},
	"world":          {},
	"european union": {},
	"euro zone":      {},
}

// GDP extracts country and nominal GDP pairs from the Wikipedia ranking table.
type GDP struct{}

// Name implements scraper.Strategy.
func (GDP) Name() string { return "gdp" }

// TargetPath implements scraper.Strategy.
func (GDP) TargetPath() string { return gdpPath }

// Parse implements scraper.Strategy. Pages without a wikitable are Absent.
func (GDP) Parse(doc *goquery.Document) (scraper.Result, error) {
	table := doc.Find("table.wikitable.sortable").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return scraper.Absent(), nil
	}

	records := []scraper.Record{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}
		if goquery.NodeName(cells.First()) == "th" {
			return
		}
		country := stripFootnote(cellText(cells.Eq(0)))
		gdp := stripFootnote(cellText(cells.Eq(1)))
		if country == "" || gdp == "" {
			return
		}
		lower := strings.ToLower(country)
		if _, aggregate := gdpAggregates[lower]; aggregate || strings.Contains(lower, "rank") {
			return
		}
		if !startsWithDigit(gdp) {
			return
		}
		records = append(records, scraper.Record{"country": country, "gdp": gdp})
	})
	return scraper.Many(records), nil
}
