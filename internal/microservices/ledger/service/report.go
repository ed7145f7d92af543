package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

const (
	topProducts     = 5
	defaultCategory = "Otros"
)

// MenuLookup resolves sold lines to their menu category.
type MenuLookup interface {
	Item(ctx context.Context, id string) (domain.MenuItem, error)
	ItemByName(ctx context.Context, name string) (domain.MenuItem, error)
}

type ProductSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Breakdown struct {
	Name    string          `json:"name"`
	Label   string          `json:"label,omitempty"`
	Tickets int             `json:"tickets,omitempty"`
	Total   decimal.Decimal `json:"total"`
}

type HourSales struct {
	Hour    int             `json:"hour"`
	Tickets int             `json:"tickets"`
	Total   decimal.Decimal `json:"total"`
}

// DailyReport summarizes one business day. Cancelled sales are counted but
// excluded from every total.
type DailyReport struct {
	Date            string          `json:"date"`
	Tickets         int             `json:"tickets"`
	Cancelled       int             `json:"cancelled"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	AverageTicket   decimal.Decimal `json:"average_ticket"`
	Tips            decimal.Decimal `json:"tips"`
	Expenses        decimal.Decimal `json:"expenses"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	BestSeller      string          `json:"best_seller,omitempty"`
	TopProducts     []ProductSales  `json:"top_products"`
	ByCategory      []Breakdown     `json:"by_category"`
	ByPaymentMethod []Breakdown     `json:"by_payment_method"`
	ByHour          []HourSales     `json:"by_hour"`
}

type ReportServiceInterface interface {
	Daily(ctx context.Context, day time.Time) (DailyReport, error)
}

type ReportService struct {
	ledger   *Ledger
	expenses repository.ExpenseRepositoryInterface
	menu     MenuLookup
	loc      *time.Location
}

func NewReportService(ledger *Ledger, expenses repository.ExpenseRepositoryInterface, menu MenuLookup, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{ledger: ledger, expenses: expenses, menu: menu, loc: loc}
}

// Daily builds the report for the calendar day of day in the terminal's
// location.
func (s *ReportService) Daily(ctx context.Context, day time.Time) (DailyReport, error) {
	local := day.In(s.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	sales, err := s.ledger.Sales(ctx, from.UTC(), to.UTC())
	if err != nil {
		return DailyReport{}, err
	}
	expenses, err := s.expenses.Range(ctx, from.UTC(), to.UTC())
	if err != nil {
		return DailyReport{}, err
	}

	rep := DailyReport{
		Date:            from.Format(time.DateOnly),
		TotalSales:      decimal.Zero,
		AverageTicket:   decimal.Zero,
		Tips:            decimal.Zero,
		Expenses:        decimal.Zero,
		TopProducts:     []ProductSales{},
		ByCategory:      []Breakdown{},
		ByPaymentMethod: []Breakdown{},
		ByHour:          []HourSales{},
	}
	for _, e := range expenses {
		rep.Expenses = rep.Expenses.Add(e.Amount)
	}

	products := make(map[string]*ProductSales)
	categories := make(map[string]decimal.Decimal)
	methods := make(map[domain.PaymentMethod]*Breakdown)
	hours := make(map[int]*HourSales)
	resolve := s.categoryResolver(ctx)

	for _, sale := range sales {
		if sale.IsCancelled() {
			rep.Cancelled++
			continue
		}
		rep.Tickets++
		rep.TotalSales = rep.TotalSales.Add(sale.Total)
		rep.Tips = rep.Tips.Add(sale.Tip)

		m, ok := methods[sale.PaymentMethod]
		if !ok {
			m = &Breakdown{Name: string(sale.PaymentMethod), Label: sale.PaymentMethod.Label(), Total: decimal.Zero}
			methods[sale.PaymentMethod] = m
		}
		m.Tickets++
		m.Total = m.Total.Add(sale.Total)

		hour := sale.CreatedAt.In(s.loc).Hour()
		h, ok := hours[hour]
		if !ok {
			h = &HourSales{Hour: hour, Total: decimal.Zero}
			hours[hour] = h
		}
		h.Tickets++
		h.Total = h.Total.Add(sale.Total)

		for _, l := range sale.Items {
			p, ok := products[l.Name]
			if !ok {
				p = &ProductSales{Name: l.Name, Revenue: decimal.Zero}
				products[l.Name] = p
			}
			p.Quantity += l.Quantity
			p.Revenue = p.Revenue.Add(l.Amount())

			cat := resolve(l)
			categories[cat] = categories[cat].Add(l.Amount())
		}
	}

	if rep.Tickets > 0 {
		rep.AverageTicket = rep.TotalSales.Div(decimal.NewFromInt(int64(rep.Tickets))).Round(2)
	}
	rep.NetProfit = rep.TotalSales.Sub(rep.Expenses)

	for _, p := range products {
		rep.TopProducts = append(rep.TopProducts, *p)
	}
	sort.Slice(rep.TopProducts, func(i, j int) bool {
		a, b := rep.TopProducts[i], rep.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(rep.TopProducts) > topProducts {
		rep.TopProducts = rep.TopProducts[:topProducts]
	}
	if len(rep.TopProducts) > 0 {
		rep.BestSeller = rep.TopProducts[0].Name
	}

	for name, total := range categories {
		rep.ByCategory = append(rep.ByCategory, Breakdown{Name: name, Total: total})
	}
	sortBreakdown(rep.ByCategory)
	for _, m := range methods {
		rep.ByPaymentMethod = append(rep.ByPaymentMethod, *m)
	}
	sortBreakdown(rep.ByPaymentMethod)

	for _, h := range hours {
		rep.ByHour = append(rep.ByHour, *h)
	}
	sort.Slice(rep.ByHour, func(i, j int) bool { return rep.ByHour[i].Hour < rep.ByHour[j].Hour })
	return rep, nil
}

// categoryResolver looks each product up once per report. Lines whose item
// is gone from the menu fall under "Otros".
func (s *ReportService) categoryResolver(ctx context.Context) func(domain.OrderLine) string {
	seen := make(map[string]string)
	return func(l domain.OrderLine) string {
		key := l.MenuItemID + "\x00" + l.Name
		if cat, ok := seen[key]; ok {
			return cat
		}
		cat := defaultCategory
		if s.menu != nil {
			item, err := s.menu.Item(ctx, l.MenuItemID)
			if errors.Is(err, domain.ErrMenuItemNotFound) || l.MenuItemID == "" {
				item, err = s.menu.ItemByName(ctx, l.Name)
			}
			if err == nil && item.Category != "" {
				cat = item.Category
			}
		}
		seen[key] = cat
		return cat
	}
}

func sortBreakdown(b []Breakdown) {
	sort.Slice(b, func(i, j int) bool {
		if !b[i].Total.Equal(b[j].Total) {
			return b[i].Total.GreaterThan(b[j].Total)
		}
		return b[i].Name < b[j].Name
	})
}
