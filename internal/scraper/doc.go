// Package scraper implements the polite fetch-and-parse core: a robots.txt
// policy gate, a response cache, a retrying fetcher and the orchestrator that
// hands fetched markup to pluggable site strategies.
package scraper
