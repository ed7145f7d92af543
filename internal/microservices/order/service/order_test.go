package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	customerrepo "restaurant-pos/internal/microservices/customer/repository"
	customer "restaurant-pos/internal/microservices/customer/service"
)

func TestLoad_CreatesFreeTables(t *testing.T) {
	h := newHarness(t)

	orders := h.svc.Orders()
	require.Len(t, orders, 4)
	for i, o := range orders {
		assert.Equal(t, domain.KindTable, o.Kind)
		assert.Equal(t, i+1, o.TableNumber)
		assert.Equal(t, domain.StatusFree, o.Status)
	}
}

func TestAddItem_SnapshotsCatalogEntry(t *testing.T) {
	h := newHarness(t)

	o := h.add(t, "1", "taco", 2)
	assert.Equal(t, domain.StatusOrdering, o.Status)
	require.NotNil(t, o.StartedAt)
	require.Len(t, o.PendingLines, 1)
	assert.Equal(t, "Taco de Arrachera", o.PendingLines[0].Name)

	h.catalog.items["taco"] = domain.MenuItem{ID: "taco", Name: "Taco Nuevo", Price: dec("99")}
	got, err := h.svc.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Taco de Arrachera", got.PendingLines[0].Name)
	assert.True(t, got.PendingLines[0].UnitPrice.Equal(dec("50")))
}

func TestAddItem_EditByIndexKeepsIdentity(t *testing.T) {
	h := newHarness(t)
	h.add(t, "1", "taco", 1)
	h.add(t, "1", "agua", 1)

	idx := 1
	o, err := h.svc.AddItem(context.Background(), "1", AddItemRequest{Quantity: 3, Notes: "sin hielo", LineIndex: &idx})
	require.NoError(t, err)
	require.Len(t, o.PendingLines, 2)
	assert.Equal(t, "agua", o.PendingLines[1].MenuItemID)
	assert.Equal(t, 3, o.PendingLines[1].Quantity)
	assert.Equal(t, "sin hielo", o.PendingLines[1].Notes)
	assert.True(t, o.PendingLines[1].UnitPrice.Equal(dec("30")))
}

func TestAddItem_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.AddItem(ctx, "1", AddItemRequest{MenuItemID: "taco", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = h.svc.AddItem(ctx, "1", AddItemRequest{MenuItemID: "pozole", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrMenuItemNotFound)

	idx := 5
	_, err = h.svc.AddItem(ctx, "1", AddItemRequest{Quantity: 1, LineIndex: &idx})
	assert.ErrorIs(t, err, domain.ErrInvalidLine)

	_, err = h.svc.AddItem(ctx, "99", AddItemRequest{MenuItemID: "taco", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	o, err := h.svc.Get("1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, o.Status)
}

func TestUpdateQuantity_RemovesBelowOne(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "2", "taco", 1)
	h.add(t, "2", "agua", 2)

	o, err := h.svc.UpdateQuantity(ctx, "2", 0, 4)
	require.NoError(t, err)
	assert.True(t, o.PendingTotal().Equal(dec("260")))

	o, err = h.svc.UpdateQuantity(ctx, "2", 1, 0)
	require.NoError(t, err)
	require.Len(t, o.PendingLines, 1)

	o, err = h.svc.UpdateQuantity(ctx, "2", 0, -3)
	require.NoError(t, err)
	assert.Empty(t, o.PendingLines)
	assert.True(t, o.PendingTotal().IsZero())

	_, err = h.svc.UpdateQuantity(ctx, "2", 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidLine)
}

func TestSendToKitchen_MovesPendingToCommitted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "3", "taco", 2)

	res, err := h.svc.SendToKitchen(ctx, "3", "Lupita")
	require.NoError(t, err)
	o := res.Order
	assert.Equal(t, domain.StatusOccupied, o.Status)
	assert.Empty(t, o.PendingLines)
	require.Len(t, o.CommittedLines, 1)
	require.NotNil(t, o.OrderNumber)
	assert.Equal(t, int64(1001), *o.OrderNumber)

	h.add(t, "3", "agua", 1)
	h.add(t, "3", "cafe", 1)
	res, err = h.svc.SendToKitchen(ctx, "3", "Lupita")
	require.NoError(t, err)
	o = res.Order
	require.Len(t, o.CommittedLines, 3)
	assert.Equal(t, "taco", o.CommittedLines[0].MenuItemID)
	assert.Equal(t, "agua", o.CommittedLines[1].MenuItemID)
	assert.Equal(t, "cafe", o.CommittedLines[2].MenuItemID)
	assert.Equal(t, int64(1001), *o.OrderNumber, "folio never changes once assigned")

	kitchen := h.tickets.ofKind(domain.TicketKitchen)
	require.Len(t, kitchen, 2)
	assert.Len(t, kitchen[1].Lines, 2, "second ticket carries only the new lines")
	assert.Equal(t, "Mesa 3", kitchen[1].OriginName)
	assert.Equal(t, int64(1001), *kitchen[1].OrderNumber)
}

func TestSendToKitchen_EmptyIsNoop(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.SendToKitchen(context.Background(), "1", "Lupita")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, res.Order.Status)
	assert.Nil(t, res.Order.OrderNumber)
	assert.Empty(t, h.tickets.sent)
}

func TestSendToKitchen_ClearsDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "1", "taco", 1)
	_, err := h.svc.Park(ctx, "1")
	require.NoError(t, err)

	_, err = h.svc.SendToKitchen(ctx, "1", "Lupita")
	require.NoError(t, err)
	drafts, err := h.drafts.Drafts(ctx)
	require.NoError(t, err)
	assert.NotContains(t, drafts, "1")
}

func TestSendToKitchen_PrinterDownStillCommits(t *testing.T) {
	h := newHarness(t)
	h.add(t, "1", "taco", 1)
	h.tickets.err = assert.AnError

	res, err := h.svc.SendToKitchen(context.Background(), "1", "Lupita")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, res.Order.Status)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "kitchen ticket")
}

func TestSendToKitchen_FolioFailureLeavesOrder(t *testing.T) {
	h := newHarness(t)
	h.add(t, "1", "taco", 1)
	h.folio.err = assert.AnError

	_, err := h.svc.SendToKitchen(context.Background(), "1", "Lupita")
	assert.ErrorIs(t, err, domain.ErrFolioUnavailable)

	o, _ := h.svc.Get("1")
	assert.Len(t, o.PendingLines, 1)
	assert.Equal(t, domain.StatusOrdering, o.Status)
}

func TestApplyDiscount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "1", "combo", 1)

	o, err := h.svc.ApplyDiscount(ctx, "1", "10%")
	require.NoError(t, err)
	assert.True(t, o.Discount.Equal(dec("20")))

	h.add(t, "1", "combo", 1)
	o, _ = h.svc.Get("1")
	assert.True(t, o.Discount.Equal(dec("20")), "discount is not rescaled when items change")

	o, err = h.svc.ApplyDiscount(ctx, "1", "15")
	require.NoError(t, err)
	assert.True(t, o.Discount.Equal(dec("15")), "discount overwrites")

	o, err = h.svc.ApplyDiscount(ctx, "1", "mucho")
	require.NoError(t, err)
	assert.True(t, o.Discount.IsZero())
}

func TestStoreFailureKeepsCache(t *testing.T) {
	h := newHarness(t)
	h.add(t, "1", "taco", 1)
	h.orders.fail = true

	_, err := h.svc.AddItem(context.Background(), "1", AddItemRequest{MenuItemID: "agua", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrStore)

	o, _ := h.svc.Get("1")
	assert.Len(t, o.PendingLines, 1)
}

func TestPark(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.add(t, "2", "taco", 1)
	o, err := h.svc.Park(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrdering, o.Status)
	drafts, _ := h.drafts.Drafts(ctx)
	require.Len(t, drafts["2"], 1)

	_, err = h.svc.UpdateQuantity(ctx, "2", 0, 0)
	require.NoError(t, err)
	o, err = h.svc.Park(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFree, o.Status)
	assert.Nil(t, o.StartedAt)
	drafts, _ = h.drafts.Drafts(ctx)
	assert.NotContains(t, drafts, "2")
}

func TestPark_OccupiedStaysOccupied(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "2", "taco", 1)
	_, err := h.svc.SendToKitchen(ctx, "2", "Lupita")
	require.NoError(t, err)

	o, err := h.svc.Park(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, o.Status)

	h.add(t, "2", "agua", 1)
	o, err = h.svc.Park(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, o.Status)
}

func TestPark_ReturnsCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "2", "taco", 1)

	o, err := h.svc.Park(ctx, "2")
	require.NoError(t, err)
	o.PendingLines[0].Quantity = 9
	o.Status = domain.StatusFree

	cached, err := h.svc.Get("2")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.PendingLines[0].Quantity)
	assert.Equal(t, domain.StatusOrdering, cached.Status)
}

func TestOpen_RestoresDraftOnFreeTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.drafts.SaveDraft(ctx, "4", []domain.OrderLine{{MenuItemID: "cafe", Name: "Café de Olla", UnitPrice: dec("20"), Quantity: 2}}))

	o, err := h.svc.Open(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrdering, o.Status)
	require.Len(t, o.PendingLines, 1)
	assert.True(t, o.PendingTotal().Equal(dec("40")))
}

func TestLoad_RestoresDraftsAndRoundTrips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.add(t, "1", "taco", 2)
	_, err := h.svc.SendToKitchen(ctx, "1", "Lupita")
	require.NoError(t, err)
	h.add(t, "1", "agua", 1)
	_, err = h.svc.ApplyDiscount(ctx, "1", "5")
	require.NoError(t, err)
	require.NoError(t, h.drafts.SaveDraft(ctx, "3", []domain.OrderLine{{MenuItemID: "cafe", Name: "Café", UnitPrice: dec("20"), Quantity: 1}}))

	before, _ := h.svc.Get("1")

	reloaded := h.build(4)
	require.NoError(t, reloaded.Load(ctx))

	after, err := reloaded.Get("1")
	require.NoError(t, err)
	assert.Equal(t, before.PendingLines, after.PendingLines)
	assert.Equal(t, before.CommittedLines, after.CommittedLines)
	assert.Equal(t, before.Status, after.Status)
	assert.True(t, before.Discount.Equal(after.Discount))
	assert.Equal(t, *before.OrderNumber, *after.OrderNumber)

	three, _ := reloaded.Get("3")
	assert.Equal(t, domain.StatusOrdering, three.Status)
	assert.Len(t, three.PendingLines, 1)
}

func TestCreateAdhoc(t *testing.T) {
	h := newHarness(t)

	o, err := h.svc.CreateAdhoc(context.Background(), domain.Customer{Name: "Ana López", Phone: "5512345678"}, "Av. Juárez 10")
	require.NoError(t, err)
	assert.Equal(t, domain.KindAdhoc, o.Kind)
	assert.Equal(t, "Pedido Ana", o.Name)
	assert.Equal(t, domain.StatusOrdering, o.Status)
	assert.Equal(t, "adhoc-id-1", o.ID)

	orders := h.svc.Orders()
	assert.Equal(t, o.ID, orders[len(orders)-1].ID, "ad-hoc orders follow the tables")
}

func TestCreateAdhoc_UsesCustomerDirectory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dir := customer.NewCustomerService(customerrepo.NewMemoryCustomers())
	h.svc.customers = dir

	ana, err := dir.Save(ctx, domain.CustomerRecord{Name: "Ana López", Phone: "5512345678", Addresses: []string{"Av. Juárez 10"}})
	require.NoError(t, err)

	o, err := h.svc.CreateAdhoc(ctx, domain.Customer{ID: ana.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, "Pedido Ana", o.Name)
	assert.Equal(t, "Av. Juárez 10", o.DeliveryAddress)
	require.NotNil(t, o.Customer)
	assert.Equal(t, "5512345678", o.Customer.Phone)

	_, err = h.svc.CreateAdhoc(ctx, domain.Customer{Name: "Beto", Phone: "5598765432"}, "Privada Olmos 3")
	require.NoError(t, err)
	found, err := dir.Search(ctx, "5598")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"Privada Olmos 3"}, found[0].Addresses)

	_, err = h.svc.CreateAdhoc(ctx, domain.Customer{ID: "missing"}, "")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestJournalReceivesEvents(t *testing.T) {
	h := newHarness(t)
	h.add(t, "1", "taco", 1)
	_, err := h.svc.SendToKitchen(context.Background(), "1", "Lupita")
	require.NoError(t, err)

	require.Len(t, h.journal.events, 2)
	assert.Equal(t, domain.EventItemAdded, h.journal.events[0].Type)
	assert.Equal(t, domain.EventSentToKitchen, h.journal.events[1].Type)
	assert.Equal(t, "1", h.journal.events[1].OrderID)
}
