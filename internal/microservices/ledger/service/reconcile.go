package service

import (
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

// Reconcile computes a cash cut over the given sales and expenses. Cancelled
// sales only count towards CancelledCount/CancelledTotal. Identity,
// operator and period fields are left to the caller.
func Reconcile(sales []domain.SaleRecord, expenses []domain.Expense, counted, left decimal.Decimal) domain.CashCut {
	var c domain.CashCut
	for _, s := range sales {
		if s.IsCancelled() {
			c.CancelledCount++
			c.CancelledTotal = c.CancelledTotal.Add(s.Total)
			continue
		}
		if s.PaymentMethod.IsCash() {
			c.CashSales = c.CashSales.Add(s.Total)
		} else {
			c.DigitalSales = c.DigitalSales.Add(s.Total)
		}
		c.Tips = c.Tips.Add(s.Tip)
	}
	for _, e := range expenses {
		c.Expenses = c.Expenses.Add(e.Amount)
	}
	c.TotalSales = c.CashSales.Add(c.DigitalSales)
	c.ExpectedCash = c.CashSales.Sub(c.Expenses)
	c.CountedCash = counted
	c.Difference = counted.Sub(c.ExpectedCash)
	c.LeftInDrawer = left
	c.ToWithdraw = domain.MaxZero(counted.Sub(left))
	return c
}
