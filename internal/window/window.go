// Package window computes which rows of a long, fixed-height list intersect
// the visible viewport so that only that slice needs to be materialized.
package window

import "math"

// DefaultOverscan is the number of extra rows rendered around the viewport.
const DefaultOverscan = 4

// Viewport describes the geometry of a scrolling list container.
type Viewport struct {
	RowHeight int
	Height    int
	// Overscan rows are split between above and below the viewport. Values
	// below 1 are raised to 1 so a partially scrolled bottom row is covered.
	Overscan int
}

// Range is the half-open index interval [Start, End) to render, along with
// the container geometry the scrollbar needs.
type Range struct {
	Start       int
	End         int
	Offset      int // pixel offset of the first rendered row
	TotalHeight int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether index i is rendered.
func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

// Compute returns the rows of an n-item list to render at scrollOffset.
// scrollOffset is clamped into the valid scroll range first.
func Compute(n int, vp Viewport, scrollOffset float64) Range {
	if n <= 0 || vp.RowHeight <= 0 {
		return Range{}
	}
	overscan := vp.Overscan
	if overscan < 1 {
		overscan = 1
	}
	height := vp.Height
	if height < 0 {
		height = 0
	}

	total := n * vp.RowHeight
	maxOffset := float64(total - height)
	if maxOffset < 0 {
		maxOffset = 0
	}
	if math.IsNaN(scrollOffset) || scrollOffset < 0 {
		scrollOffset = 0
	}
	if scrollOffset > maxOffset {
		scrollOffset = maxOffset
	}

	visible := (height+vp.RowHeight-1)/vp.RowHeight + overscan
	start := int(scrollOffset)/vp.RowHeight - overscan/2
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > n {
		end = n
	}
	return Range{
		Start:       start,
		End:         end,
		Offset:      start * vp.RowHeight,
		TotalHeight: total,
	}
}

// Row is one materialized list item with its absolute position.
type Row[T any] struct {
	Index int
	Top   int
	Item  T
}

// Rows materializes the items covered by r. Each row is positioned at
// index*rowHeight inside a container of r.TotalHeight.
func Rows[T any](items []T, r Range, rowHeight int) []Row[T] {
	if r.End > len(items) {
		r.End = len(items)
	}
	if r.Start >= r.End {
		return nil
	}
	rows := make([]Row[T], 0, r.End-r.Start)
	for i := r.Start; i < r.End; i++ {
		rows = append(rows, Row[T]{Index: i, Top: i * rowHeight, Item: items[i]})
	}
	return rows
}

// Render is Compute followed by Rows.
func Render[T any](items []T, vp Viewport, scrollOffset float64) ([]Row[T], Range) {
	r := Compute(len(items), vp, scrollOffset)
	return Rows(items, r, vp.RowHeight), r
}
