package scraper

import (
	"errors"
	"fmt"
)

// Failure reasons surfaced by Fetch and Scrape.
var (
	ErrPolicyDenied     = errors.New("fetch disallowed by robots.txt")
	ErrNetworkExhausted = errors.New("fetch attempts exhausted")
	ErrStrategyFailed   = errors.New("strategy failed")
	ErrInvalidTarget    = errors.New("invalid fetch target")
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}
