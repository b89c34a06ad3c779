package query

import (
	"strconv"
)

// MaxLimit is the largest page size the API serves
const MaxLimit = 1000

// Search is the immutable description of one invocation's search
type Search struct {
	BaseURL          string
	OrgURL           string
	Filters          Filters
	Limit            int
	Continuous       bool
	StopAfterOnePage bool
	// ClearOnExhaust clears the stored cursor when a continuous run reaches
	// the end of the results instead of keeping the last link.
	ClearOnExhaust bool
}

// Options are the raw inputs a Search is built from
type Options struct {
	BaseURL          string
	OrgURL           string
	Limit            int
	Since            string
	Until            string
	Query            Filters
	Continuous       bool
	StopAfterOnePage bool
	ClearOnExhaust   bool
}

// ClampLimit caps n at MaxLimit. Non-positive values select MaxLimit.
func ClampLimit(n int) int {
	if n <= 0 || n > MaxLimit {
		return MaxLimit
	}
	return n
}

// NewSearch merges flag values and --query filters into a Search.
//
// The limit, since, until and orgurl flags are recorded as filters first, so
// they are sent to the API like any other filter; --query entries override
// them. A limit given through --query replaces the flag value and is clamped
// the same way.
func NewSearch(opts Options) (Search, error) {
	filters := Filters{}
	if opts.Limit != 0 {
		filters.Set(KeyLimit, strconv.Itoa(opts.Limit))
	}
	filters.Set(KeySince, opts.Since)
	filters.Set(KeyUntil, opts.Until)
	filters.Set(KeyOrgURL, opts.OrgURL)
	filters.Merge(opts.Query)

	limit := opts.Limit
	if v, ok := filters[KeyLimit]; ok && v != "" {
		n, err := ParseLimit(v)
		if err != nil {
			return Search{}, err
		}
		limit = n
	}
	limit = ClampLimit(limit)
	filters[KeyLimit] = strconv.Itoa(limit)

	return Search{
		BaseURL:          opts.BaseURL,
		OrgURL:           opts.OrgURL,
		Filters:          filters,
		Limit:            limit,
		Continuous:       opts.Continuous,
		StopAfterOnePage: opts.StopAfterOnePage,
		ClearOnExhaust:   opts.ClearOnExhaust,
	}, nil
}
