package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProjection_TotalQuantity(t *testing.T) {
	tests := []struct {
		name  string
		lines []CartLine
		want  int
	}{
		{"no lines", nil, 0},
		{"single line", []CartLine{{LineID: "l1", Quantity: 1}}, 1},
		{"several lines", []CartLine{
			{LineID: "l1", Quantity: 2},
			{LineID: "l2", Quantity: 3},
			{LineID: "l3", Quantity: 1},
		}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProjection("c1", tt.lines, "https://shop.example/checkout")
			require.Equal(t, tt.want, p.TotalQuantity)
			require.Equal(t, tt.want == 0, p.IsEmpty())
		})
	}
}

func TestNewProjection_CopiesInput(t *testing.T) {
	lines := []CartLine{{LineID: "l1", Quantity: 1, Attributes: map[string]string{"k": "v"}}}
	p := NewProjection("c1", lines, "")

	lines[0].Quantity = 9
	lines[0].Attributes["k"] = "changed"

	require.Equal(t, 1, p.Lines[0].Quantity)
	require.Equal(t, "v", p.Lines[0].Attributes["k"])
}

func TestProjection_LineLookup(t *testing.T) {
	p := NewProjection("c1", []CartLine{
		{LineID: "l1", VariantID: "v1", Quantity: 1},
		{LineID: "l2", VariantID: "v2", Quantity: 1},
	}, "")

	require.Equal(t, []string{"l1", "l2"}, p.LineIDs())

	line, ok := p.Line("l2")
	require.True(t, ok)
	require.Equal(t, "v2", line.VariantID)

	_, ok = p.Line("missing")
	require.False(t, ok)
}

func TestProjection_LineIDsOfEmptyCart(t *testing.T) {
	require.Empty(t, EmptyProjection().LineIDs())
}

func TestEmptyProjection(t *testing.T) {
	p := EmptyProjection()
	require.True(t, p.IsEmpty())
	require.NotNil(t, p.Lines, "Lines should be non-nil so it encodes as []")
	require.Empty(t, p.Lines)
}
