package links

import "regexp"

// MaxLinks caps the curated reference list per reply.
const MaxLinks = 6

var urlRe = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)

// ExtractURLs returns every well-formed URL token in text, in order of first
// appearance, duplicates removed.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range urlRe.FindAllString(text, -1) {
		u := trimTrailingPunct(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func trimTrailingPunct(u string) string {
	for len(u) > 0 {
		switch u[len(u)-1] {
		case '.', ',', ';', ':', '!', '?', '*', '_':
			u = u[:len(u)-1]
		default:
			return u
		}
	}
	return u
}

// Curate merges the canonical reference lines for a flow with allow-listed
// URLs extracted from the generated text. Canonical lines come first;
// extracted URLs whose host is not trusted are dropped silently. Duplicates
// are removed preserving first-seen order and the result is capped at
// MaxLinks entries.
func Curate(canonical []string, extracted []string, allow Allowlist) []string {
	seenLines := make(map[string]bool)
	seenURLs := make(map[string]bool)
	var out []string

	for _, line := range canonical {
		if line == "" || seenLines[line] {
			continue
		}
		seenLines[line] = true
		for _, u := range ExtractURLs(line) {
			seenURLs[u] = true
		}
		out = append(out, line)
	}

	for _, u := range extracted {
		if seenURLs[u] || !allow.Allowed(u) {
			continue
		}
		seenURLs[u] = true
		out = append(out, u)
	}

	if len(out) > MaxLinks {
		out = out[:MaxLinks]
	}
	return out
}
