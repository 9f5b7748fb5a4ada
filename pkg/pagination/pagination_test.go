package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		page, limit, max  int
		wantPage, wantLim int
	}{
		{"defaults", 0, 0, 100, 1, 20},
		{"negative", -3, -1, 100, 1, 20},
		{"explicit", 3, 15, 100, 3, 15},
		{"capped", 1, 500, 100, 1, 100},
		{"custom max", 1, 60, 50, 1, 50},
		{"zero max uses package cap", 1, 150, 0, 1, MaxLimit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.page, tc.limit, tc.max)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantLim, p.Limit)
		})
	}
}

func TestBoundsAndPages(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	start, end := p.Bounds(25)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)
	assert.Equal(t, 3, p.Pages(25))

	start, end = Params{Page: 3, Limit: 10}.Bounds(25)
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)

	start, end = Params{Page: 9, Limit: 10}.Bounds(25)
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)

	assert.Equal(t, 0, p.Pages(0))
	assert.Equal(t, 1, Params{Page: 1, Limit: 20}.Pages(20))
}

// Every page holds min(limit, max(0, total-(page-1)*limit)) items.
func TestSlice_PageSizeInvariant(t *testing.T) {
	items := make([]int, 47)
	for i := range items {
		items[i] = i
	}
	for limit := 1; limit <= 25; limit++ {
		for page := 1; page <= 60; page++ {
			p := Params{Page: page, Limit: limit}
			want := min(limit, max(0, len(items)-(page-1)*limit))
			got := Slice(items, p)
			assert.Len(t, got, want, "page=%d limit=%d", page, limit)
			if want > 0 {
				assert.Equal(t, (page-1)*limit, got[0])
			}
		}
	}
}

func TestMeta(t *testing.T) {
	m := Params{Page: 2, Limit: 20}.Meta(41)
	assert.Equal(t, Meta{Page: 2, Limit: 20, Total: 41, Pages: 3}, m)
}
