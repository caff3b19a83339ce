// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/strategies lists the registered strategies.
//   - GET /v1/scrape/{strategy} runs one scrape; POST /v1/scrape/batch runs several.
//   - GET /v1/results lists recently recorded scrapes.
package api
