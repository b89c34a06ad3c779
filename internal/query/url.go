package query

import (
	"fmt"
	"net/url"
	"strings"
)

// OrgURLParam is the query parameter carrying the tenant disambiguator
const OrgURLParam = "orgUrl"

// BuildRequestURL appends the search's orgUrl and filters to base.
//
// Parameters already present in base are left alone, so a server-generated
// pagination URL keeps its own values. Appended parameters follow the
// existing query string (joined with "&") or start a new one with "?".
// Empty filter values are skipped.
func BuildRequestURL(base string, search Search) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parsing request url %q: %w", base, err)
	}

	present := existingKeys(u.RawQuery)
	var pairs []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		if _, ok := present[key]; ok {
			return
		}
		present[key] = struct{}{}
		pairs = append(pairs, key+"="+escapeValue(value))
	}

	add(OrgURLParam, search.OrgURL)
	for _, key := range AllowedKeys {
		add(key, search.Filters[key])
	}

	raw := strings.TrimRight(u.RawQuery, "&")
	if len(pairs) > 0 {
		if raw != "" {
			raw += "&"
		}
		raw += strings.Join(pairs, "&")
	}
	u.RawQuery = raw
	u.ForceQuery = false

	return u.String(), nil
}

func existingKeys(rawQuery string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		keys[key] = struct{}{}
	}
	return keys
}

// escapeValue percent-encodes v for a query string, using %20 for spaces so
// timestamps like "2024-01-02 03:04:05Z" survive servers that do not decode
// "+".
func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// HasPagination reports whether rawURL carries an after= pagination parameter
func HasPagination(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := existingKeys(u.RawQuery)["after"]
	return ok
}
