package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	KindTable OrderKind = "table"
	KindAdhoc OrderKind = "adhoc"
)

type OrderStatus string

const (
	StatusFree     OrderStatus = "free"
	StatusOrdering OrderStatus = "ordering"
	StatusOccupied OrderStatus = "occupied"
)

type RecipeComponent struct {
	IngredientID    string          `json:"ingredient_id"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

type MenuItem struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Price    decimal.Decimal   `json:"price"`
	Category string            `json:"category"`
	Recipe   []RecipeComponent `json:"recipe,omitempty"`
}

// OrderLine carries name and price as they were when the line was added.
type OrderLine struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Notes      string          `json:"notes,omitempty"`
}

func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Customer struct {
	ID    string `json:"id,omitempty"` // directory entry the customer was picked from
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// CustomerRecord is a directory entry for takeout and delivery customers.
type CustomerRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Addresses []string  `json:"addresses"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID              string          `json:"id"`
	Kind            OrderKind       `json:"kind"`
	TableNumber     int             `json:"table_number,omitempty"`
	Name            string          `json:"name"`
	Status          OrderStatus     `json:"status"`
	PendingLines    []OrderLine     `json:"pending_lines"`
	CommittedLines  []OrderLine     `json:"committed_lines"`
	MergedInto      string          `json:"merged_into,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	OrderNumber     *int64          `json:"order_number,omitempty"`
	Discount        decimal.Decimal `json:"discount"`
	Customer        *Customer       `json:"customer,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int64           `json:"version"` // stored revision this copy was read at
}

// TableID is the stable order id of table n.
func TableID(n int) string { return strconv.Itoa(n) }

func TableName(n int) string { return "Mesa " + strconv.Itoa(n) }

func NewTable(n int) Order {
	return Order{
		ID:             TableID(n),
		Kind:           KindTable,
		TableNumber:    n,
		Name:           TableName(n),
		Status:         StatusFree,
		PendingLines:   []OrderLine{},
		CommittedLines: []OrderLine{},
		Discount:       decimal.Zero,
	}
}

// AdhocName is the display name of a takeout/delivery tab.
func AdhocName(customer string) string {
	first := strings.TrimSpace(customer)
	if i := strings.IndexAny(first, " \t"); i > 0 {
		first = first[:i]
	}
	if first == "" {
		return "Pedido"
	}
	return "Pedido " + first
}

func (o Order) IsMerged() bool { return o.MergedInto != "" }

// AllItems is committed ++ pending.
func (o Order) AllItems() []OrderLine {
	out := make([]OrderLine, 0, len(o.CommittedLines)+len(o.PendingLines))
	out = append(out, o.CommittedLines...)
	return append(out, o.PendingLines...)
}

func (o Order) PendingTotal() decimal.Decimal   { return sumLines(o.PendingLines) }
func (o Order) CommittedTotal() decimal.Decimal { return sumLines(o.CommittedLines) }

func (o Order) Subtotal() decimal.Decimal {
	return o.CommittedTotal().Add(o.PendingTotal())
}

// GrandTotal is subtotal minus discount, never below zero.
func (o Order) GrandTotal() decimal.Decimal {
	gt := o.Subtotal().Sub(o.Discount)
	if gt.IsNegative() {
		return decimal.Zero
	}
	return gt
}

type Totals struct {
	Pending    decimal.Decimal `json:"pending"`
	Committed  decimal.Decimal `json:"committed"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func (o Order) Totals() Totals {
	return Totals{
		Pending:    o.PendingTotal(),
		Committed:  o.CommittedTotal(),
		Subtotal:   o.Subtotal(),
		Discount:   o.Discount,
		GrandTotal: o.GrandTotal(),
	}
}

// OriginName is what tickets and sales show as the order's origin.
func (o Order) OriginName() string {
	if o.Kind == KindAdhoc && o.Customer != nil && o.Customer.Name != "" {
		return "Pedido " + o.Customer.Name
	}
	if o.Name != "" {
		return o.Name
	}
	if o.Kind == KindTable {
		return TableName(o.TableNumber)
	}
	return o.ID
}

// Clone deep-copies slices and pointers so a mutated copy never aliases
// the cached order.
func (o Order) Clone() Order {
	c := o
	c.PendingLines = append([]OrderLine{}, o.PendingLines...)
	c.CommittedLines = append([]OrderLine{}, o.CommittedLines...)
	if o.StartedAt != nil {
		t := *o.StartedAt
		c.StartedAt = &t
	}
	if o.OrderNumber != nil {
		n := *o.OrderNumber
		c.OrderNumber = &n
	}
	if o.Customer != nil {
		cu := *o.Customer
		c.Customer = &cu
	}
	return c
}

// Reset returns a table to its clean free state. Identity fields survive.
func (o *Order) Reset() {
	o.Status = StatusFree
	o.PendingLines = []OrderLine{}
	o.CommittedLines = []OrderLine{}
	o.MergedInto = ""
	o.StartedAt = nil
	o.OrderNumber = nil
	o.Discount = decimal.Zero
}

func sumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}
