package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

const cacheKeySuffix = ".html"

var cacheKeyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// NormalizeOrigin validates an origin and standardizes it: lowercase scheme
// and host, default ports removed, no trailing slash.
func NormalizeOrigin(rawOrigin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawOrigin))
	if err != nil {
		return "", fmt.Errorf("%w: parse origin: %w", ErrInvalidTarget, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: origin %q must use http or https", ErrInvalidTarget, rawOrigin)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: origin %q has no host", ErrInvalidTarget, rawOrigin)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w: origin %q must not carry a query or fragment", ErrInvalidTarget, rawOrigin)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// ResolveURL joins origin and targetPath with exactly one slash between them.
func ResolveURL(origin, targetPath string) (string, error) {
	if strings.TrimSpace(targetPath) == "" {
		return "", fmt.Errorf("%w: empty target path", ErrInvalidTarget)
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(targetPath, "/"), nil
}

// CacheKey derives a storage-safe identifier from an absolute URL. The
// protocol prefix is dropped and every path separator and colon becomes "_".
// Distinct URLs may collide; that is accepted.
func CacheKey(rawURL string) string {
	key := rawURL
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(key, prefix) {
			key = strings.TrimPrefix(key, prefix)
			break
		}
	}
	return cacheKeyReplacer.Replace(key) + cacheKeySuffix
}

func requestPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
