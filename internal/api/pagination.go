package api

import (
	"strconv"

	"github.com/gamedb-api/internal/service"
	"github.com/gin-gonic/gin"
)

// List paging defaults
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationMeta describes one page of a listing
type PaginationMeta struct {
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// PaginatedResponse is a page of items of any type
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// paginate slices an ordered listing into the requested page
func paginate[T any](items []T, page, limit int) PaginatedResponse[T] {
	total := len(items)
	start := total
	// pages past the end are empty; page-1 <= total/limit keeps the product in range
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := min(start+limit, total)

	data := items[start:end]
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			TotalItems:  total,
			TotalPages:  (total + limit - 1) / limit,
			CurrentPage: page,
			PageSize:    limit,
		},
	}
}

// pageParams reads page and limit, falling back to defaults on bad input
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// ParseTopN reads the top list size. Non-numeric input means the default;
// the service clamps the range.
func ParseTopN(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return service.DefaultTopGames
	}
	return n
}
