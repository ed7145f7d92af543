package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

type fakeMenu map[string]domain.MenuItem

func (m fakeMenu) Item(_ context.Context, id string) (domain.MenuItem, error) {
	if it, ok := m[id]; ok {
		return it, nil
	}
	return domain.MenuItem{}, domain.ErrMenuItemNotFound
}

func (m fakeMenu) ItemByName(_ context.Context, name string) (domain.MenuItem, error) {
	for _, it := range m {
		if it.Name == name {
			return it, nil
		}
	}
	return domain.MenuItem{}, domain.ErrMenuItemNotFound
}

func TestDaily(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(repository.NewMemorySales(), repository.NewMemoryOutbox(), nil)
	expenses := repository.NewMemoryExpenses()
	menu := fakeMenu{
		"taco":   {ID: "taco", Name: "Taco", Category: "Tacos"},
		"gringa": {ID: "gringa", Name: "Gringa", Category: "Especialidades"},
	}

	lunch := sale("s1", domain.PaymentCash, "100", "10", day.Add(13*time.Hour))
	lunch.Items = []domain.OrderLine{
		{MenuItemID: "taco", Name: "Taco", UnitPrice: d("40"), Quantity: 2},
		{MenuItemID: "agua", Name: "Agua de Jamaica", UnitPrice: d("20"), Quantity: 1},
	}
	dinner := sale("s2", domain.PaymentCard, "50", "0", day.Add(20*time.Hour))
	dinner.Items = []domain.OrderLine{{Name: "Gringa", UnitPrice: d("50"), Quantity: 1}}
	voided := sale("s3", domain.PaymentCash, "80", "0", day.Add(14*time.Hour))
	tomorrow := sale("s4", domain.PaymentCash, "500", "0", day.Add(25*time.Hour))

	for _, s := range []domain.SaleRecord{lunch, dinner, voided, tomorrow} {
		_, err := l.Record(ctx, s)
		require.NoError(t, err)
	}
	require.NoError(t, l.Cancel(ctx, "s3"))
	require.NoError(t, expenses.Add(ctx, domain.Expense{ID: "e1", Description: "Hielo", Amount: d("30"), Date: day.Add(9 * time.Hour)}))

	rep, err := NewReportService(l, expenses, menu, time.UTC).Daily(ctx, day.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "2026-03-10", rep.Date)
	assert.Equal(t, 2, rep.Tickets)
	assert.Equal(t, 1, rep.Cancelled)
	assert.True(t, rep.TotalSales.Equal(d("150")), rep.TotalSales.String())
	assert.True(t, rep.AverageTicket.Equal(d("75")), rep.AverageTicket.String())
	assert.True(t, rep.Tips.Equal(d("10")), rep.Tips.String())
	assert.True(t, rep.Expenses.Equal(d("30")), rep.Expenses.String())
	assert.True(t, rep.NetProfit.Equal(d("120")), rep.NetProfit.String())

	assert.Equal(t, "Taco", rep.BestSeller)
	require.Len(t, rep.TopProducts, 3)
	assert.Equal(t, 2, rep.TopProducts[0].Quantity)
	assert.Equal(t, "Agua de Jamaica", rep.TopProducts[1].Name)

	require.Len(t, rep.ByCategory, 3)
	assert.Equal(t, "Tacos", rep.ByCategory[0].Name)
	assert.True(t, rep.ByCategory[0].Total.Equal(d("80")))
	assert.Equal(t, "Especialidades", rep.ByCategory[1].Name)
	assert.Equal(t, defaultCategory, rep.ByCategory[2].Name)

	require.Len(t, rep.ByPaymentMethod, 2)
	assert.Equal(t, "cash", rep.ByPaymentMethod[0].Name)
	assert.Equal(t, 1, rep.ByPaymentMethod[0].Tickets)
	assert.True(t, rep.ByPaymentMethod[0].Total.Equal(d("100")))

	require.Len(t, rep.ByHour, 2)
	assert.Equal(t, 13, rep.ByHour[0].Hour)
	assert.Equal(t, 20, rep.ByHour[1].Hour)
}

func TestDaily_EmptyDayWithoutMenu(t *testing.T) {
	l := NewLedger(repository.NewMemorySales(), repository.NewMemoryOutbox(), nil)
	rep, err := NewReportService(l, repository.NewMemoryExpenses(), nil, time.UTC).Daily(context.Background(), day)
	require.NoError(t, err)
	assert.Zero(t, rep.Tickets)
	assert.True(t, rep.AverageTicket.IsZero())
	assert.Empty(t, rep.BestSeller)
	assert.NotNil(t, rep.TopProducts)
}

func TestDaily_LedgerDown(t *testing.T) {
	sales := newDownSales()
	sales.set(true)
	l := NewLedger(sales, repository.NewMemoryOutbox(), nil)
	_, err := NewReportService(l, repository.NewMemoryExpenses(), nil, time.UTC).Daily(context.Background(), day)
	assert.ErrorIs(t, err, errDown)
}
