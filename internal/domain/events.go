package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketKind string

const (
	TicketKitchen      TicketKind = "kitchen"
	TicketCustomer     TicketKind = "customer"
	TicketPreCheck     TicketKind = "precheck"
	TicketCancellation TicketKind = "cancellation"
	TicketCashCut      TicketKind = "cash_cut"
)

// Ticket is the structured payload handed to the renderer. Lines are always
// committed ++ pending.
type Ticket struct {
	ID            string          `json:"id"`
	Kind          TicketKind      `json:"kind"`
	OrderID       string          `json:"order_id,omitempty"`
	OriginName    string          `json:"origin_name,omitempty"`
	OrderNumber   *int64          `json:"order_number,omitempty"`
	Lines         []OrderLine     `json:"lines,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	Operator      string          `json:"operator,omitempty"`
	Customer      *Customer       `json:"customer,omitempty"`
	Address       string          `json:"delivery_address,omitempty"`
	CashCut       *CashCut        `json:"cash_cut,omitempty"`
	IssuedAt      time.Time       `json:"issued_at"`
}

type EventType string

const (
	EventOpened        EventType = "order.opened"
	EventItemAdded     EventType = "order.item_added"
	EventItemChanged   EventType = "order.item_changed"
	EventSentToKitchen EventType = "order.sent_to_kitchen"
	EventDiscount      EventType = "order.discount_applied"
	EventMerged        EventType = "order.merged"
	EventUnmerged      EventType = "order.unmerged"
	EventParked        EventType = "order.parked"
	EventVoided        EventType = "order.voided"
	EventPaid          EventType = "order.paid"
	EventPreCheck      EventType = "order.precheck"
)

// LifecycleEvent is one entry of an order's timeline.
type LifecycleEvent struct {
	OrderID    string         `json:"order_id"`
	Type       EventType      `json:"event_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
