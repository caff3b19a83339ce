package strategies

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

const watersColumns = 6

// Waters lists New Brunswick bodies of water from the Wikipedia table.
type Waters struct{}

// Name implements scraper.Strategy.
func (Waters) Name() string { return "waters" }

// TargetPath implements scraper.Strategy.
func (Waters) TargetPath() string { return "/wiki/List_of_bodies_of_water_of_New_Brunswick" }

// Parse implements scraper.Strategy. Without a wikitable the result is Absent;
// rows with fewer than six data cells are skipped.
func (Waters) Parse(doc *goquery.Document) (scraper.Result, error) {
	table := doc.Find("table.wikitable").First()
	if table.Length() == 0 {
		return scraper.Absent(), nil
	}

	records := []scraper.Record{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.ChildrenFiltered("td")
		if cols.Length() < watersColumns {
			return
		}
		records = append(records, scraper.Record{
			"name":         cellText(cols.Eq(0)),
			"type_1":       cellText(cols.Eq(1)),
			"type_2":       cellText(cols.Eq(2)),
			"parent":       cellText(cols.Eq(3)),
			"start_county": cellText(cols.Eq(4)),
			"end_county":   cellText(cols.Eq(5)),
		})
	})
	return scraper.Many(records), nil
}
