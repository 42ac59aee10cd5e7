package filter

// Page is one page of query results with pagination bookkeeping.
type Page struct {
	Items      any  `json:"items"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	HasMore    bool `json:"has_more"`
}

// NewPage assembles a Page from the data query results and the total count.
func NewPage(items any, total, page, size int) Page {
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}

	return Page{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		Size:       size,
		HasMore:    page*size < total,
	}
}
