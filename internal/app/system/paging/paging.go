// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"

	"github.com/lmshub/toolhub/internal/app/aggregator"
)

// ParsePage extracts limit/offset query parameters. Values are clamped
// to the aggregator's bounds; absent or invalid values fall back to the
// defaults.
func ParsePage(r *http.Request) aggregator.Page {
	return aggregator.Page{
		Limit:  parseInt(r, "limit", aggregator.DefaultPageSize, 1, aggregator.MaxPageSize),
		Offset: parseInt(r, "offset", 0, 0, 1<<30),
	}
}

func parseInt(r *http.Request, name string, def, min, max int) int {
	s := query.Get(r, name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
