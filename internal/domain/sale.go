package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentPending  PaymentMethod = "pending"
)

// ParsePaymentMethod accepts the English codes and the labels printed on
// the register ("Efectivo", "Tarjeta", "Transferencia"). Empty means cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cash", "efectivo":
		return PaymentCash, nil
	case "card", "tarjeta":
		return PaymentCard, nil
	case "transfer", "transferencia":
		return PaymentTransfer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

func (p PaymentMethod) IsCash() bool { return p == PaymentCash }

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCash:
		return "Efectivo"
	case PaymentCard:
		return "Tarjeta"
	case PaymentTransfer:
		return "Transferencia"
	case PaymentPending:
		return "Pendiente"
	default:
		return string(p)
	}
}

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

// SaleRecord is the immutable snapshot written to the ledger on payment.
// Only Status and CancelledAt change afterwards.
type SaleRecord struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	OrderNumber   int64           `json:"order_number"`
	OriginName    string          `json:"origin_name"`
	Items         []OrderLine     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Operator      string          `json:"operator"`
	Status        SaleStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

func (s SaleRecord) IsCancelled() bool { return s.Status == SaleCancelled }

type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CashCut struct {
	ID             string          `json:"id"`
	Operator       string          `json:"operator"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	DigitalSales   decimal.Decimal `json:"digital_sales"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	Tips           decimal.Decimal `json:"tips"`
	Expenses       decimal.Decimal `json:"expenses"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	CountedCash    decimal.Decimal `json:"counted_cash"`
	Difference     decimal.Decimal `json:"difference"`
	LeftInDrawer   decimal.Decimal `json:"left_in_drawer"`
	ToWithdraw     decimal.Decimal `json:"to_withdraw"`
	CancelledCount int             `json:"cancelled_count"`
	CancelledTotal decimal.Decimal `json:"cancelled_total"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Ingredient struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"min_stock"`
	LastCost decimal.Decimal `json:"last_cost"`
}

func (i Ingredient) IsLow() bool {
	return i.MinStock.IsPositive() && i.Stock.LessThanOrEqual(i.MinStock)
}

type PurchaseItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Purchase is a supplier invoice: it adds stock and is booked as an expense.
type Purchase struct {
	ID          string          `json:"id"`
	Merchant    string          `json:"merchant"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []PurchaseItem  `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}
