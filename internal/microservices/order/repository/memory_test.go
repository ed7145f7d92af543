package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

func TestMemoryOrders_VersionedSave(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryOrders()

	require.NoError(t, m.Save(ctx, domain.NewTable(1), domain.NewTable(2)))
	one, err := m.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), one.Version)

	assert.ErrorIs(t, m.Save(ctx, domain.NewTable(1)), domain.ErrStaleOrder, "second insert of the same id")

	edited := one.Clone()
	edited.Status = domain.StatusOrdering
	require.NoError(t, m.Save(ctx, edited))

	stale := one.Clone()
	stale.Status = domain.StatusOccupied
	assert.ErrorIs(t, m.Save(ctx, stale), domain.ErrStaleOrder)

	got, err := m.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrdering, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestMemoryOrders_StaleBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryOrders()
	require.NoError(t, m.Save(ctx, domain.NewTable(1), domain.NewTable(2)))
	one, _ := m.Get(ctx, "1")
	two, _ := m.Get(ctx, "2")

	require.NoError(t, m.Save(ctx, two))

	one.Status = domain.StatusOccupied
	assert.ErrorIs(t, m.Save(ctx, one, two), domain.ErrStaleOrder)

	got, _ := m.Get(ctx, "1")
	assert.Equal(t, domain.StatusFree, got.Status)
}

func TestMemoryOrders_VersionedDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryOrders()
	o := domain.Order{ID: "adhoc-1", Kind: domain.KindAdhoc, Name: "Pedido Ana", Status: domain.StatusOrdering}
	require.NoError(t, m.Save(ctx, o))

	assert.ErrorIs(t, m.Delete(ctx, o.ID, 0), domain.ErrStaleOrder)
	require.NoError(t, m.Delete(ctx, o.ID, 1))
	assert.ErrorIs(t, m.Delete(ctx, o.ID, 1), domain.ErrStaleOrder)

	_, err := m.Get(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
