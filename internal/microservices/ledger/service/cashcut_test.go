package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

type cutHarness struct {
	svc     *CashCutService
	ledger  *Ledger
	exp     *ExpenseService
	tickets *recordingTickets
	now     time.Time
}

func newCutHarness(t *testing.T) *cutHarness {
	t.Helper()
	repo := repository.NewMemory(nil)
	tickets := &recordingTickets{}
	svc := New(repo, tickets, nil, time.UTC, nil)
	h := &cutHarness{svc: svc.CashCutService, ledger: svc.Ledger, exp: svc.ExpenseService, tickets: tickets,
		now: day.Add(18 * time.Hour)}
	h.svc.now = func() time.Time { return h.now }
	return h
}

func TestPerform_RequiresAmounts(t *testing.T) {
	h := newCutHarness(t)
	ctx := context.Background()

	_, err := h.svc.Perform(ctx, CashCutRequest{Operator: "Ana", Left: dp("500")})
	assert.ErrorIs(t, err, domain.ErrInvalidCashCut)
	_, err = h.svc.Perform(ctx, CashCutRequest{Operator: "Ana", Counted: dp("500")})
	assert.ErrorIs(t, err, domain.ErrInvalidCashCut)
	assert.Empty(t, h.tickets.sent)
}

func TestPerform_ReconcilesTodayAndPrints(t *testing.T) {
	h := newCutHarness(t)
	ctx := context.Background()

	for _, s := range []domain.SaleRecord{
		sale("s1", domain.PaymentCash, "300", "20", day.Add(13*time.Hour)),
		sale("s2", domain.PaymentCard, "150", "15", day.Add(14*time.Hour)),
		sale("yesterday", domain.PaymentCash, "999", "0", day.Add(-2*time.Hour)),
	} {
		_, err := h.ledger.Record(ctx, s)
		require.NoError(t, err)
	}
	_, err := h.exp.AddExpense(ctx, domain.Expense{Description: "Gas", Amount: d("100"), Date: day.Add(9 * time.Hour)})
	require.NoError(t, err)

	res, err := h.svc.Perform(ctx, CashCutRequest{Operator: "Ana", Counted: dp("210"), Left: dp("500")})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	c := res.Cut
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.CashSales.Equal(d("300")))
	assert.True(t, c.DigitalSales.Equal(d("150")))
	assert.True(t, c.ExpectedCash.Equal(d("200")))
	assert.True(t, c.Difference.Equal(d("10")))
	assert.True(t, c.ToWithdraw.IsZero())
	assert.Equal(t, day, c.PeriodStart)

	require.Len(t, h.tickets.sent, 1)
	assert.Equal(t, domain.TicketCashCut, h.tickets.sent[0].Kind)
	require.NotNil(t, h.tickets.sent[0].CashCut)
	assert.Equal(t, c.ID, h.tickets.sent[0].CashCut.ID)

	cuts, err := h.svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, cuts, 1)
}

func TestPerform_SecondCutStartsAfterFirst(t *testing.T) {
	h := newCutHarness(t)
	ctx := context.Background()

	_, err := h.ledger.Record(ctx, sale("s1", domain.PaymentCash, "100", "0", day.Add(12*time.Hour)))
	require.NoError(t, err)
	_, err = h.svc.Perform(ctx, CashCutRequest{Operator: "Ana", Counted: dp("100"), Left: dp("0")})
	require.NoError(t, err)

	h.now = day.Add(22 * time.Hour)
	_, err = h.ledger.Record(ctx, sale("s2", domain.PaymentCash, "40", "0", day.Add(20*time.Hour)))
	require.NoError(t, err)

	res, err := h.svc.Perform(ctx, CashCutRequest{Operator: "Luis", Counted: dp("40"), Left: dp("0")})
	require.NoError(t, err)
	assert.True(t, res.Cut.CashSales.Equal(d("40")), "got %s", res.Cut.CashSales)
	assert.True(t, res.Cut.Difference.IsZero())
}

func TestPerform_TicketFailureIsWarning(t *testing.T) {
	h := newCutHarness(t)
	h.tickets.err = errors.New("printer offline")

	res, err := h.svc.Perform(context.Background(), CashCutRequest{Operator: "Ana", Counted: dp("0"), Left: dp("0")})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	cuts, _ := h.svc.List(context.Background(), 10, 0)
	assert.Len(t, cuts, 1)
}

func TestPreview_DoesNotStore(t *testing.T) {
	h := newCutHarness(t)
	ctx := context.Background()
	_, err := h.ledger.Record(ctx, sale("s1", domain.PaymentCash, "80", "0", day.Add(10*time.Hour)))
	require.NoError(t, err)

	c, err := h.svc.Preview(ctx, d("80"), d("20"))
	require.NoError(t, err)
	assert.True(t, c.ToWithdraw.Equal(d("60")))
	cuts, _ := h.svc.List(ctx, 10, 0)
	assert.Empty(t, cuts)
}
