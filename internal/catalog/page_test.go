package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := make([]int, 19)
	for i := range items {
		items[i] = i
	}

	tests := []struct {
		name      string
		items     []int
		page      int
		size      int
		wantPage  int
		wantTotal int
		wantFirst int
		wantLen   int
	}{
		{"first page", items, 1, 8, 1, 3, 0, 8},
		{"middle page", items, 2, 8, 2, 3, 8, 8},
		{"last partial page", items, 3, 8, 3, 3, 16, 3},
		{"past the end clamps", items, 9, 8, 3, 3, 16, 3},
		{"zero page clamps", items, 0, 8, 1, 3, 0, 8},
		{"default size", items, 1, 0, 1, 3, 0, 8},
		{"empty list", nil, 1, 8, 1, 0, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(tt.items, tt.page, tt.size)
			require.Equal(t, tt.wantPage, got.Page)
			require.Equal(t, tt.wantTotal, got.TotalPages)
			require.Equal(t, len(tt.items), got.TotalItems)
			require.Len(t, got.Items, tt.wantLen)
			if tt.wantLen > 0 {
				require.Equal(t, tt.wantFirst, got.Items[0])
			}
		})
	}
}
