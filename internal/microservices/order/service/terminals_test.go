package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

// secondTerminal starts another engine over the same stores, loaded now.
func (h *harness) secondTerminal(t *testing.T) *OrderService {
	t.Helper()
	other := h.build(4)
	require.NoError(t, other.Load(context.Background()))
	return other
}

func TestTerminals_StaleAddKeepsOtherTerminalsKitchenLines(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.secondTerminal(t)

	h.add(t, "1", "taco", 2)
	_, err := h.svc.SendToKitchen(ctx, "1", "Lupita")
	require.NoError(t, err)

	o, err := b.AddItem(ctx, "1", AddItemRequest{MenuItemID: "agua", Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, o.CommittedLines, 1)
	assert.Len(t, o.PendingLines, 1)

	stored, err := h.orders.Get(ctx, "1")
	require.NoError(t, err)
	require.Len(t, stored.CommittedLines, 1)
	assert.Equal(t, "taco", stored.CommittedLines[0].MenuItemID)
	require.Len(t, stored.PendingLines, 1)
	assert.Equal(t, "agua", stored.PendingLines[0].MenuItemID)
	require.NotNil(t, stored.OrderNumber)
	assert.Equal(t, int64(1001), *stored.OrderNumber)
	assert.Equal(t, domain.StatusOccupied, stored.Status)
}

func TestTerminals_TablePaidElsewhereIsNotChargedTwice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "2", "cafe", 1)
	_, err := h.svc.SendToKitchen(ctx, "2", "Lupita")
	require.NoError(t, err)
	b := h.secondTerminal(t)

	_, err = h.svc.FinalizePayment(ctx, "2", PaymentRequest{Method: "cash"})
	require.NoError(t, err)

	_, err = b.FinalizePayment(ctx, "2", PaymentRequest{Method: "cash"})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
	assert.Len(t, h.ledger.sales, 1)
	assert.Len(t, h.tickets.ofKind(domain.TicketCustomer), 1)

	o, err := b.Get("2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, o.Status, "the stale terminal picked up the reset")
}

func TestTerminals_NeverSentTablePaidElsewhere(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "2", "cafe", 1)
	b := h.secondTerminal(t)

	_, err := h.svc.FinalizePayment(ctx, "2", PaymentRequest{Method: "card"})
	require.NoError(t, err)

	_, err = b.FinalizePayment(ctx, "2", PaymentRequest{Method: "card"})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
	assert.Len(t, h.ledger.sales, 1)
}

func TestTerminals_AdhocPaidElsewhere(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o, err := h.svc.CreateAdhoc(ctx, domain.Customer{Name: "Beto"}, "")
	require.NoError(t, err)
	h.add(t, o.ID, "taco", 1)
	b := h.secondTerminal(t)

	_, err = h.svc.FinalizePayment(ctx, o.ID, PaymentRequest{Method: "cash"})
	require.NoError(t, err)

	_, err = b.FinalizePayment(ctx, o.ID, PaymentRequest{Method: "cash"})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = b.Void(ctx, o.ID, VoidRequest{Authorized: true})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Len(t, h.ledger.sales, 1)
}

func TestTerminals_StaleVoidSeesNewLines(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.secondTerminal(t)
	h.add(t, "3", "combo", 1)

	_, err := b.Void(ctx, "3", VoidRequest{Authorized: true, Operator: "Gerente"})
	require.NoError(t, err)

	cancelled := h.tickets.ofKind(domain.TicketCancellation)
	require.Len(t, cancelled, 1)
	require.Len(t, cancelled[0].Lines, 1)
	assert.Equal(t, "combo", cancelled[0].Lines[0].MenuItemID)
}

func TestTerminals_StaleMergeSeesOccupiedTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.secondTerminal(t)
	h.add(t, "4", "taco", 1)
	_, err := h.svc.SendToKitchen(ctx, "4", "Lupita")
	require.NoError(t, err)

	_, err = b.Merge(ctx, "1", "4")
	assert.ErrorIs(t, err, domain.ErrMergeNotAllowed)

	stored, err := h.orders.Get(ctx, "4")
	require.NoError(t, err)
	assert.Len(t, stored.CommittedLines, 1)
	assert.Empty(t, stored.MergedInto)
}

func TestOpen_ReadsFromStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.secondTerminal(t)
	h.add(t, "3", "agua", 2)

	cached, err := b.Get("3")
	require.NoError(t, err)
	assert.Empty(t, cached.PendingLines)

	o, err := b.Open(ctx, "3")
	require.NoError(t, err)
	require.Len(t, o.PendingLines, 1)
	assert.Equal(t, 2, o.PendingLines[0].Quantity)
}

func TestRefresh_PicksUpOtherTerminals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.secondTerminal(t)
	adhoc, err := h.svc.CreateAdhoc(ctx, domain.Customer{Name: "Ana"}, "")
	require.NoError(t, err)

	_, err = b.Get(adhoc.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	require.NoError(t, b.Refresh(ctx))
	_, err = b.Get(adhoc.ID)
	assert.NoError(t, err)
}

func TestSave_StoreErrorIsNotRetried(t *testing.T) {
	h := newHarness(t)
	h.orders.fail = true

	_, err := h.svc.AddItem(context.Background(), "1", AddItemRequest{MenuItemID: "taco", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.NotErrorIs(t, err, domain.ErrStaleOrder)
}
