package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

func TestRegionsForCounty(t *testing.T) {
	assert.Equal(t, []string{"Chaleur", "Restigouche"}, RegionsForCounty("Restigouche County"))
	assert.Equal(t, []string{"Inner Bay of Fundy", "Southeast"}, RegionsForCounty("Albert"))
	assert.Equal(t, []string{"Lower Saint John", "Upper Saint John"}, RegionsForCounty("Carleton County"))
	assert.Empty(t, RegionsForCounty("Queens County"))
	assert.Empty(t, RegionsForCounty(""))
}

func TestProcessWaters(t *testing.T) {
	records := []scraper.Record{
		{"name": "Grand Lake", "type_1": "Lake", "start_county": "Queens County", "end_county": "Sunbury County"},
		{"name": "Restigouche River", "type_1": " river ", "start_county": "Restigouche County", "end_county": "Restigouche County"},
		{"name": "Bay of Fundy", "type_1": "Bay", "start_county": "Saint John County", "end_county": "Charlotte County"},
		{"name": "Lost Pond", "type_1": "Lake", "start_county": "Nowhere", "end_county": ""},
		{"type_1": "lake", "start_county": "Charlotte", "end_county": "Charlotte"},
	}

	entries := ProcessWaters(records, zap.NewNop())
	require.Equal(t, []Entry{
		{Name: "Grand Lake", WaterType: LakeDescription, Region: "Lower Saint John"},
		{Name: "Restigouche River", WaterType: RiverDescription, Region: "Chaleur"},
		{Name: "Restigouche River", WaterType: RiverDescription, Region: "Restigouche"},
		{Name: "Unknown Name", WaterType: LakeDescription, Region: "Southwest"},
	}, entries)

	assert.Equal(t, [][]string{
		{"Grand Lake", LakeDescription, "Lower Saint John"},
		{"Restigouche River", RiverDescription, "Chaleur"},
		{"Restigouche River", RiverDescription, "Restigouche"},
		{"Unknown Name", LakeDescription, "Southwest"},
	}, Rows(entries))
}

func TestProcessWatersEmpty(t *testing.T) {
	assert.Empty(t, ProcessWaters(nil, nil))
	assert.Empty(t, Rows(nil))
}
