// Package query holds the per-invocation search parameters and builds the
// request URL sent to the log search API.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedQuery is returned when a --query entry is not key=value
	ErrMalformedQuery = errors.New("malformed query")
	// ErrUnknownFilter is returned in strict mode for keys outside the allow-list
	ErrUnknownFilter = errors.New("unknown filter key")
)

// Filter keys accepted by the API, in the order they are appended to a request.
const (
	KeyLimit         = "limit"
	KeySince         = "since"
	KeyUntil         = "until"
	KeyOrgURL        = "orgurl"
	KeyTenant        = "tenant"
	KeyService       = "service"
	KeyMetricType    = "metrictype"
	KeyMetricSubtype = "metricsubtype"
	KeyClientIP      = "clientip"
	KeyCorrelationID = "correlationid"
	KeyUser          = "user"
)

// AllowedKeys is the filter allow-list in request order.
var AllowedKeys = []string{
	KeyLimit,
	KeySince,
	KeyUntil,
	KeyOrgURL,
	KeyTenant,
	KeyService,
	KeyMetricType,
	KeyMetricSubtype,
	KeyClientIP,
	KeyCorrelationID,
	KeyUser,
}

// IsAllowed reports whether key is on the filter allow-list
func IsAllowed(key string) bool {
	for _, k := range AllowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Filters maps allow-listed keys to their values
type Filters map[string]string

// Set stores value under key if the key is allowed. It reports whether the
// value was stored.
func (f Filters) Set(key, value string) bool {
	if !IsAllowed(key) {
		return false
	}
	f[key] = value
	return true
}

// Merge copies every entry of other into f, overwriting existing values
func (f Filters) Merge(other Filters) {
	for k, v := range other {
		f[k] = v
	}
}

// ParseResult is the outcome of parsing a --query argument
type ParseResult struct {
	Filters Filters
	// Ignored lists keys that were dropped because they are not allow-listed
	Ignored []string
}

// ParseFilters parses a comma-separated list of key=value assignments.
//
// Entries without "=" fail with ErrMalformedQuery. Keys outside the
// allow-list are dropped and reported in ParseResult.Ignored, unless strict
// is set, in which case they fail with ErrUnknownFilter. Empty input yields
// an empty result.
func ParseFilters(raw string, strict bool) (ParseResult, error) {
	res := ParseResult{Filters: Filters{}}
	if strings.TrimSpace(raw) == "" {
		return res, nil
	}

	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return ParseResult{}, fmt.Errorf("%w: entry %q is not key=value", ErrMalformedQuery, item)
		}
		// key=a=b has no unambiguous meaning
		if strings.Contains(value, "=") {
			return ParseResult{}, fmt.Errorf("%w: entry %q has more than one '='", ErrMalformedQuery, item)
		}
		key = strings.TrimSpace(key)
		if !res.Filters.Set(key, value) {
			if strict {
				return ParseResult{}, fmt.Errorf("%w: %q (allowed: %s)", ErrUnknownFilter, key, strings.Join(AllowedKeys, ", "))
			}
			res.Ignored = append(res.Ignored, key)
		}
	}

	return res, nil
}

// ParseLimit parses a limit filter value
func ParseLimit(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: limit %q is not an integer", ErrMalformedQuery, value)
	}
	return n, nil
}
