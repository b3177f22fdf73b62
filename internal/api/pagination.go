package api

import (
	"net/http"

	"github.com/ignite/retail-rfm/internal/pkg/httputil"
)

// PaginationParams holds parsed pagination values from query params.
type PaginationParams struct {
	Limit  int
	Offset int
}

// PaginatedResponse wraps any list data with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta contains pagination metadata for the response.
type PaginationMeta struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// ParsePagination extracts limit and offset from query params. A zero or
// missing limit selects defaultLimit; limits above maxLimit are capped.
// It writes a 400 and returns false on malformed values.
func ParsePagination(w http.ResponseWriter, r *http.Request, defaultLimit, maxLimit int) (PaginationParams, bool) {
	limit, ok := httputil.QueryInt(w, r, "limit", defaultLimit)
	if !ok {
		return PaginationParams{}, false
	}
	offset, ok := httputil.QueryInt(w, r, "offset", 0)
	if !ok {
		return PaginationParams{}, false
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return PaginationParams{Limit: limit, Offset: offset}, true
}

// paginate returns the window of items selected by p.
func paginate[T any](items []T, p PaginationParams) ([]T, PaginationMeta) {
	total := len(items)
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)
	return items[start:end], PaginationMeta{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasMore: end < total,
	}
}
