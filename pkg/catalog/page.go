package catalog

import "github.com/example/bakery/pkg/models"

// Page is the pagination metadata returned with every listing.
type Page struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPage(total int64, page, limit int) Page {
	if limit < 1 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = 1
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Page{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// Listing is a page of cakes as served and cached.
type Listing struct {
	Cakes      []models.Cake `json:"cakes"`
	Pagination Page          `json:"pagination"`
}
