// Package links filters and curates reference links. Only operator-curated
// or allow-listed domains are ever surfaced to the user; this is a
// content-trust boundary, not cosmetics.
package links

import (
	"net/url"
	"strings"
)

// Allowlist is the fixed set of trusted reference hosts. A URL passes when
// its host equals an entry or is a subdomain of one (`healthhub.sg` admits
// `www.healthhub.sg`).
type Allowlist []string

// DefaultAllowlist covers the Singapore official sources the bot cites.
func DefaultAllowlist() Allowlist {
	return Allowlist{
		"healthhub.sg",
		"kkh.com.sg",
		"ecda.gov.sg",
		"life.gov.sg",
		"mom.gov.sg",
		"familiesforlife.sg",
		"hpb.gov.sg",
		"data.gov.sg",
	}
}

// Allowed reports whether rawURL points at a trusted host.
func (a Allowlist) Allowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range a {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
