package strategies

import (
	"sort"
	"strings"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

// Default origins for the bundled strategies.
const (
	ExampleOrigin   = "https://example.com"
	WikipediaOrigin = "https://en.wikipedia.org"
)

type entry struct {
	strategy scraper.Strategy
	origin   string
}

var registry = map[string]entry{
	"example":  {strategy: Example{}, origin: ExampleOrigin},
	"gdp":      {strategy: GDP{}, origin: WikipediaOrigin},
	"gdp-text": {strategy: GDPText{}, origin: WikipediaOrigin},
	"waters":   {strategy: Waters{}, origin: WikipediaOrigin},
}

// Lookup returns the strategy registered under name (case-insensitive).
func Lookup(name string) (scraper.Strategy, bool) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return e.strategy, true
}

// DefaultOrigin returns the origin a strategy targets when none is configured.
func DefaultOrigin(name string) (string, bool) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return e.origin, true
}

// Names lists registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
