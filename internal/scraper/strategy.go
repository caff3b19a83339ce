package scraper

import "github.com/PuerkitoBio/goquery"

// Strategy extracts records from one page of a site.
//
// TargetPath is resolved against the scraper's origin. Parse substitutes
// placeholders for missing optional fields and returns Absent when an element
// it structurally depends on is missing. A non-nil error means the markup
// could not be handled at all.
type Strategy interface {
	Name() string
	TargetPath() string
	Parse(doc *goquery.Document) (Result, error)
}

// ParseFunc adapts a function to the Parse half of Strategy.
type ParseFunc func(doc *goquery.Document) (Result, error)

type funcStrategy struct {
	name  string
	path  string
	parse ParseFunc
}

// NewStrategy builds a Strategy from a name, a target path and a parse
// function.
func NewStrategy(name, targetPath string, parse ParseFunc) Strategy {
	return funcStrategy{name: name, path: targetPath, parse: parse}
}

func (s funcStrategy) Name() string       { return s.name }
func (s funcStrategy) TargetPath() string { return s.path }

func (s funcStrategy) Parse(doc *goquery.Document) (Result, error) {
	return s.parse(doc)
}
