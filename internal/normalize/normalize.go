// Package normalize holds the canonicalization functions used as matching
// keys across the entity graph. Every function here is pure, deterministic,
// and idempotent: normalize(normalize(x)) == normalize(x).
package normalize

import (
	"net/url"
	"strings"
	"unicode"
)

// legalSuffixes are stripped from company names for matching purposes only;
// stored names are never rewritten.
var legalSuffixes = []string{
	"labs", "inc", "llc", "ltd", "corp", "corporation", "limited",
	"network", "protocol", "technologies", "tech", "group", "foundation",
	"ventures", "capital", "crypto",
}

// githubSentinelPaths are first path segments on github.com that can never
// be a user or organization.
var githubSentinelPaths = map[string]bool{
	"explore": true, "settings": true, "orgs": true, "features": true,
	"topics": true, "trending": true, "marketplace": true, "sponsors": true,
	"about": true, "pricing": true, "login": true, "join": true,
	"search": true, "collections": true, "events": true, "site": true,
	"contact": true, "notifications": true, "apps": true,
}

// LinkedInURL canonicalizes a LinkedIn profile URL to the form
// "linkedin.com/in/<slug>". Returns "" when the input carries no /in/ slug.
func LinkedInURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// URL-decode so %c3%a1lvaro and its unencoded twin collapse to one key.
	if decoded, err := url.QueryUnescape(s); err == nil {
		s = decoded
	}

	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")

	idx := strings.Index(s, "linkedin.com/in/")
	if idx < 0 {
		return ""
	}
	s = s[idx+len("linkedin.com/in/"):]

	// Discard query string and any path tail after the slug.
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return ""
	}

	return "linkedin.com/in/" + s
}

// Email lowercases and trims an email address. Returns "" for addresses
// with no @ or no dot in the domain part.
func Email(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return ""
	}
	domain := s[at+1:]
	if !strings.Contains(domain, ".") {
		return ""
	}
	return s
}

// CompanyName produces the matching key for a company name: lowercased,
// legal suffixes stripped, punctuation removed, whitespace collapsed.
// Used only for matching, never for storage.
func CompanyName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// Strip trailing legal suffixes, repeatedly ("Acme Labs Inc." -> "acme").
	s = strings.TrimRight(s, " .,")
	for {
		stripped := false
		for _, suffix := range legalSuffixes {
			for _, sep := range []string{" ", ".", ","} {
				if strings.HasSuffix(s, sep+suffix) {
					s = strings.TrimSuffix(s, sep+suffix)
					s = strings.TrimRight(s, " .,")
					stripped = true
				}
			}
		}
		if !stripped {
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CompanyNameAlnum is the fuzzy-join form: lowercase with everything but
// letters and digits removed.
func CompanyNameAlnum(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GitHubUsername extracts the first path segment after github.com/ from a
// URL. Returns "" for sentinel paths and non-GitHub inputs.
func GitHubUsername(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")

	if !strings.HasPrefix(s, "github.com/") {
		return ""
	}
	s = strings.TrimPrefix(s, "github.com/")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" || githubSentinelPaths[s] {
		return ""
	}
	return s
}

// GitHubSlug accepts either a github.com URL or a bare username and
// returns the lowercased username. Bare input is rejected when it could
// not be a username: spaces, slashes, sentinel paths, or over GitHub's
// 39-character limit.
func GitHubSlug(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "github.com/") {
		return GitHubOrg(s)
	}
	if len(s) > 39 || strings.ContainsAny(s, " /?#@:") {
		return ""
	}
	if githubSentinelPaths[s] {
		return ""
	}
	return s
}

// GitHubOrg extracts a GitHub organization slug from a free-text
// VC-portfolio style string. Prose, long blobs and sentinel paths are
// rejected; only strings that actually contain github.com/<slug> pass.
func GitHubOrg(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > 200 {
		return ""
	}
	idx := strings.Index(strings.ToLower(s), "github.com/")
	if idx < 0 {
		return ""
	}
	return GitHubUsername(s[idx:])
}

// NameSimilarity computes Jaccard similarity over the character sets of two
// lowercased, space-stripped names. 1.0 means identical character sets.
func NameSimilarity(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range strings.ToLower(s) {
		if r != ' ' {
			set[r] = true
		}
	}
	return set
}

// SamePersonThreshold is the Jaccard score above which two names are
// treated as a same-person hint.
const SamePersonThreshold = 0.8

// CompanyMergeThreshold is the fuzzy-equality score used when grouping
// companies for merge.
const CompanyMergeThreshold = 0.85

// nonCompanyNames are employment-field values that describe a situation,
// not an organization.
var nonCompanyNames = map[string]bool{
	"self-employed": true, "self employed": true, "freelance": true,
	"freelancer": true, "independent": true, "consulting": true,
	"stealth": true, "stealth startup": true, "stealth mode": true,
	"none": true, "n/a": true, "na": true, "unemployed": true,
	"retired": true, "student": true, "various": true,
}

// ValidCompanyName reports whether a company name is acceptable for
// storage: non-empty, at least 3 characters, not a bare legal suffix, and
// not a non-company sentinel like "Self-employed".
func ValidCompanyName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 3 {
		return false
	}
	lower := strings.ToLower(trimmed)
	lower = strings.TrimRight(lower, ".")
	if nonCompanyNames[lower] {
		return false
	}
	for _, suffix := range legalSuffixes {
		if lower == suffix {
			return false
		}
	}
	return true
}
