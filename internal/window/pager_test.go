package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pageNumbers(items []PageItem) []int {
	var out []int
	for _, it := range items {
		out = append(out, it.Page) // ellipsis shows up as 0
	}
	return out
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 1, TotalPages(50, 0))
}

func TestPages(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int
		want  []int
	}{
		{"single page", 1, 3, []int{1}},
		{"few pages", 2, 30, []int{1, 2, 3}},
		{"first of many", 1, 200, []int{1, 2, 3, 4, 5, 0, 20}},
		{"middle", 10, 200, []int{1, 0, 8, 9, 10, 11, 12, 0, 20}},
		{"near end", 19, 200, []int{1, 0, 16, 17, 18, 19, 20}},
		{"adjacent anchor", 4, 200, []int{1, 2, 3, 4, 5, 6, 0, 20}},
		{"out of range page", 99, 50, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageNumbers(Pages(tt.page, tt.total, 10)))
		})
	}
}

func TestPages_MarksCurrent(t *testing.T) {
	var current []int
	for _, it := range Pages(3, 100, 10) {
		if it.Current {
			current = append(current, it.Page)
		}
	}
	assert.Equal(t, []int{3}, current)
}
