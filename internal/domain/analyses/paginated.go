package analyses

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Analysis `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// HasPrev reports whether a previous page exists.
func (p PaginatedResult) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p PaginatedResult) HasNext() bool { return p.Page < p.TotalPages }

// TotalPagesOf returns ceil(total/pageSize).
func TotalPagesOf(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// ClampPage keeps page within [1, totalPages]; out of range pages show the last one.
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}
