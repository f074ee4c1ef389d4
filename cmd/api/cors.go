package main

import (
	"net/url"
	"strings"
)

// matchCORSOrigin reports whether origin is allowed by one of patterns.
// A pattern is "*", an exact origin, or scheme://*.domain which matches any
// subdomain depth but not the bare domain.
func matchCORSOrigin(origin string, patterns []string) bool {
	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return false
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "*" {
			return true
		}
		if strings.EqualFold(p, origin) {
			return true
		}
		pu, err := url.Parse(p)
		if err != nil || !strings.EqualFold(pu.Scheme, o.Scheme) {
			continue
		}
		if suffix, ok := strings.CutPrefix(pu.Host, "*."); ok {
			if strings.HasSuffix(strings.ToLower(o.Host), "."+strings.ToLower(suffix)) {
				return true
			}
		}
	}
	return false
}
