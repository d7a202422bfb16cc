package window

// pageWindow is the number of consecutive page numbers shown around the
// current page.
const pageWindow = 5

// PageItem is a single entry of a pagination bar. Ellipsis entries have
// Page == 0.
type PageItem struct {
	Page     int
	Current  bool
	Ellipsis bool
}

// TotalPages returns the page count for total records, never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Pages lays out a pagination bar: a window of up to five pages centred on
// page, anchored by the first and last page with ellipses for gaps.
func Pages(page, total, pageSize int) []PageItem {
	last := TotalPages(total, pageSize)
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}

	start := page - pageWindow/2
	if start < 1 {
		start = 1
	}
	end := start + pageWindow - 1
	if end > last {
		end = last
	}
	if end-start < pageWindow-1 {
		start = end - pageWindow + 1
		if start < 1 {
			start = 1
		}
	}

	var items []PageItem
	if start > 1 {
		items = append(items, PageItem{Page: 1})
	}
	if start > 2 {
		items = append(items, PageItem{Ellipsis: true})
	}
	for p := start; p <= end; p++ {
		items = append(items, PageItem{Page: p, Current: p == page})
	}
	if end < last-1 {
		items = append(items, PageItem{Ellipsis: true})
	}
	if end < last {
		items = append(items, PageItem{Page: last})
	}
	return items
}
