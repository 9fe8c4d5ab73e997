package catalog

// DefaultPageSize is the number of products shown per page.
const DefaultPageSize = 8

// Page is one page of a list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// Paginate returns the 1-based page of items. Out of range pages are
// clamped to the first or last page; size < 1 selects DefaultPageSize.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	totalPages := (len(items) + size - 1) / size
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:      out,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(items),
	}
}
