package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id string, price int64, qty int) OrderLine {
	return OrderLine{MenuItemID: id, Name: id, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func TestOrderTotals(t *testing.T) {
	o := NewTable(3)
	o.CommittedLines = []OrderLine{line("taco", 50, 2)}
	o.PendingLines = []OrderLine{line("agua", 30, 1)}
	o.Discount = decimal.NewFromInt(10)

	tot := o.Totals()
	assert.True(t, tot.Committed.Equal(decimal.NewFromInt(100)))
	assert.True(t, tot.Pending.Equal(decimal.NewFromInt(30)))
	assert.True(t, tot.Subtotal.Equal(decimal.NewFromInt(130)))
	assert.True(t, tot.GrandTotal.Equal(decimal.NewFromInt(120)))
}

func TestGrandTotalNeverNegative(t *testing.T) {
	o := NewTable(1)
	o.PendingLines = []OrderLine{line("cafe", 20, 1)}
	o.Discount = decimal.NewFromInt(50)
	assert.True(t, o.GrandTotal().IsZero())
}

func TestAllItemsCommittedFirst(t *testing.T) {
	o := NewTable(1)
	o.CommittedLines = []OrderLine{line("a", 1, 1)}
	o.PendingLines = []OrderLine{line("b", 1, 1)}
	items := o.AllItems()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].MenuItemID)
	assert.Equal(t, "b", items[1].MenuItemID)
}

func TestCloneDoesNotAlias(t *testing.T) {
	now := time.Now()
	n := int64(1001)
	o := NewTable(2)
	o.PendingLines = []OrderLine{line("a", 1, 1)}
	o.StartedAt = &now
	o.OrderNumber = &n

	c := o.Clone()
	c.PendingLines[0].Quantity = 9
	*c.OrderNumber = 5

	assert.Equal(t, 1, o.PendingLines[0].Quantity)
	assert.Equal(t, int64(1001), *o.OrderNumber)
}

func TestResetKeepsIdentity(t *testing.T) {
	n := int64(1002)
	o := NewTable(4)
	o.Status = StatusOccupied
	o.CommittedLines = []OrderLine{line("a", 1, 1)}
	o.OrderNumber = &n
	o.MergedInto = "2"
	o.Discount = decimal.NewFromInt(3)

	o.Reset()
	assert.Equal(t, "4", o.ID)
	assert.Equal(t, "Mesa 4", o.Name)
	assert.Equal(t, StatusFree, o.Status)
	assert.Empty(t, o.CommittedLines)
	assert.Nil(t, o.OrderNumber)
	assert.Empty(t, o.MergedInto)
	assert.True(t, o.Discount.IsZero())
}

func TestOriginName(t *testing.T) {
	assert.Equal(t, "Mesa 7", NewTable(7).OriginName())
	o := Order{Kind: KindAdhoc, Name: AdhocName("Ana López"), Customer: &Customer{Name: "Ana López"}}
	assert.Equal(t, "Pedido Ana López", o.OriginName())
	assert.Equal(t, "Pedido Ana", AdhocName("Ana López"))
}
