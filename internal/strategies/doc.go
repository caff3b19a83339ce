// Package strategies holds the site-specific extractors the scraper ships
// with and a registry that resolves them by name.
package strategies
