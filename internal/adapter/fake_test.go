package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

func TestFake_AddMergesIdenticalLines(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	id, err := f.CreateCart(ctx)
	require.NoError(t, err)

	_, err = f.AddLine(ctx, id.CartID, "v1", 1, nil)
	require.NoError(t, err)
	proj, err := f.AddLine(ctx, id.CartID, "v1", 1, nil)
	require.NoError(t, err)

	require.Len(t, proj.Lines, 1)
	require.Equal(t, 2, proj.TotalQuantity)

	// Different attributes produce a separate line
	proj, err = f.AddLine(ctx, id.CartID, "v1", 1, map[string]string{"Custom Design": "a.png"})
	require.NoError(t, err)
	require.Len(t, proj.Lines, 2)
	require.Equal(t, 3, proj.TotalQuantity)
}

func TestFake_ExpiredCartIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	id, err := f.CreateCart(ctx)
	require.NoError(t, err)
	f.Expire(id.CartID)

	_, err = f.FetchCart(ctx, id.CartID)
	require.ErrorIs(t, err, model.ErrCartNotFound)

	_, err = f.AddLine(ctx, id.CartID, "v1", 1, nil)
	require.ErrorIs(t, err, model.ErrCartNotFound)
}

func TestFake_FailQueue(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	boom := errors.New("boom")
	f.Fail(OpCreateCart, boom)

	_, err := f.CreateCart(ctx)
	require.ErrorIs(t, err, boom)

	_, err = f.CreateCart(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, f.Calls(OpCreateCart))
	require.Equal(t, 1, f.CartCount())
}

func TestFake_RemoveUnknownLine(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	id, err := f.CreateCart(ctx)
	require.NoError(t, err)

	_, err = f.RemoveLines(ctx, id.CartID, []string{"gid://shopify/CartLine/404"})
	require.ErrorIs(t, err, model.ErrCartOperationFailed)
}

func TestFake_ProductIDFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := NewFake().AddCollection(
		model.Collection{ID: "c1", Handle: "shirts"},
		model.Product{ID: "p1", Variants: []model.Variant{{ID: "v1"}}},
	)
	id, err := f.CreateCart(ctx)
	require.NoError(t, err)

	proj, err := f.AddLine(ctx, id.CartID, "v1", 1, nil)
	require.NoError(t, err)
	require.Equal(t, "p1", proj.Lines[0].ProductID)

	_, err = f.ListProducts(ctx, "missing")
	require.ErrorIs(t, err, model.ErrCollectionNotFound)
}
