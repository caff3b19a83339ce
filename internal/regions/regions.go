// Package regions maps New Brunswick bodies of water to the tourism regions
// their counties belong to.
package regions

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

// Water type descriptions emitted for kept entries.
const (
	LakeDescription  = "lakes, ponds and reservoirs"
	RiverDescription = "rivers, brooks and streams"
)

const countySuffix = " County"

// RegionCounties lists the counties that make up each tourism region. A
// county may belong to more than one region.
var RegionCounties = map[string][]string{
	"Restigouche":        {"Restigouche"},
	"Chaleur":            {"Gloucester", "Restigouche"},
	"Miramichi":          {"Northumberland"},
	"Southeast":          {"Kent", "Westmorland", "Albert"},
	"Inner Bay of Fundy": {"Saint John", "Kings", "Albert"},
	"Lower Saint John":   {"Carleton", "York", "Sunbury", "Saint John"},
	"Southwest":          {"Charlotte"},
	"Upper Saint John":   {"Madawaska", "Victoria", "Carleton"},
}

var countyRegions = invert(RegionCounties)

// Entry is one body of water placed in one region.
type Entry struct {
	Name      string `json:"name"`
	WaterType string `json:"water_type"`
	Region    string `json:"region"`
}

// RegionsForCounty returns the sorted regions containing county. A trailing
// " County" is ignored.
func RegionsForCounty(county string) []string {
	return countyRegions[strings.TrimSuffix(county, countySuffix)]
}

// ProcessWaters keeps lakes and rivers and emits one entry per region their
// start or end county belongs to. Entries whose counties map to no region
// are dropped.
func ProcessWaters(records []scraper.Record, logger *zap.Logger) []Entry {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := []Entry{}
	for _, rec := range records {
		var description string
		switch strings.ToLower(strings.TrimSpace(rec["type_1"])) {
		case "lake":
			description = LakeDescription
		case "river":
			description = RiverDescription
		default:
			continue
		}
		name, ok := rec["name"]
		if !ok {
			name = "Unknown Name"
		}

		found := map[string]struct{}{}
		for _, county := range []string{rec["start_county"], rec["end_county"]} {
			for _, region := range RegionsForCounty(county) {
				found[region] = struct{}{}
			}
		}
		if len(found) == 0 {
			logger.Debug("no region for water body",
				zap.String("name", name),
				zap.String("start_county", rec["start_county"]),
				zap.String("end_county", rec["end_county"]),
			)
			continue
		}
		regions := make([]string, 0, len(found))
		for region := range found {
			regions = append(regions, region)
		}
		sort.Strings(regions)
		for _, region := range regions {
			entries = append(entries, Entry{Name: name, WaterType: description, Region: region})
		}
	}
	logger.Info("processed waters", zap.Int("input", len(records)), zap.Int("entries", len(entries)))
	return entries
}

// Rows converts entries to [name, water_type, region] rows.
func Rows(entries []Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, e.WaterType, e.Region})
	}
	return rows
}

func invert(regionCounties map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for region, counties := range regionCounties {
		for _, county := range counties {
			out[county] = append(out[county], region)
		}
	}
	for county := range out {
		sort.Strings(out[county])
	}
	return out
}
