// Package pagination turns page numbers into limit/offset windows and wraps
// listing results.
package pagination

import (
	"net/http"
	"strconv"
)

// DefaultPerPage is used when a caller asks for a non-positive page size.
const DefaultPerPage = 20

// Params is a limit/offset window over a listing.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// New builds the window for a 1-based page of perPage items.
func New(page, perPage int) Params {
	page = max(page, 1)
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage}
}

// FromIndex builds the window for a 0-based "load more" index.
func FromIndex(index, perPage int) Params {
	return New(max(index, 0)+1, perPage)
}

// PageFromRequest reads ?page=, defaulting to 1 when absent or invalid.
func PageFromRequest(r *http.Request) int {
	return queryInt(r, "page", 1, 1)
}

// IndexFromRequest reads ?index=, defaulting to 0 when absent or invalid.
func IndexFromRequest(r *http.Request) int {
	return queryInt(r, "index", 0, 0)
}

func queryInt(r *http.Request, key string, def, minimum int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < minimum {
		return def
	}
	return v
}

// Result is one page of a listing.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult wraps data, the items at params, out of totalCount items.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	perPage := max(params.PerPage, 1)
	totalPages := (totalCount + perPage - 1) / perPage
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
