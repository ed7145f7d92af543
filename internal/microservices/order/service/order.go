package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

type OrderServiceInterface interface {
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	Orders() []domain.Order
	Get(id string) (domain.Order, error)
	Open(ctx context.Context, id string) (domain.Order, error)
	CreateAdhoc(ctx context.Context, customer domain.Customer, address string) (domain.Order, error)
	AddItem(ctx context.Context, id string, req AddItemRequest) (domain.Order, error)
	UpdateQuantity(ctx context.Context, id string, index, quantity int) (domain.Order, error)
	SendToKitchen(ctx context.Context, id, operator string) (Result, error)
	ApplyDiscount(ctx context.Context, id, input string) (domain.Order, error)
	Merge(ctx context.Context, sourceID, targetID string) (domain.Order, error)
	MergeCandidates(id string) ([]domain.Order, error)
	Unmerge(ctx context.Context, id string) (domain.Order, error)
	Void(ctx context.Context, id string, req VoidRequest) (Result, error)
	FinalizePayment(ctx context.Context, id string, req PaymentRequest) (PaymentResult, error)
	PreCheck(ctx context.Context, id, operator string) (Result, error)
	Park(ctx context.Context, id string) (domain.Order, error)
}

type Config struct {
	TableCount int
	Terminal   string
}

type Deps struct {
	Orders    repository.OrderRepositoryInterface
	Drafts    repository.DraftRepositoryInterface
	Catalog   Catalog
	Folio     FolioAllocator
	Tickets   TicketDispatcher
	Ledger    SalesLedger
	Inventory InventoryDeductor
	Journal   Journal
	Customers CustomerDirectory
	Logger    *logger.Logger
	Clock     Clock
	NewID     func() string
}

// Result carries the order after a commit and any collaborator failures
// that did not block it.
type Result struct {
	Order    domain.Order `json:"order"`
	Warnings []string     `json:"warnings,omitempty"`
}

type AddItemRequest struct {
	MenuItemID string
	Quantity   int
	Notes      string
	LineIndex  *int // replaces the pending line at this index when set
}

// OrderService is the order lifecycle engine of one terminal. Operations are
// serialized; every mutation is persisted before the cached copy changes and
// is replayed on fresh state when another terminal saved first.
type OrderService struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	cfg       Config
	repo      repository.OrderRepositoryInterface
	drafts    repository.DraftRepositoryInterface
	catalog   Catalog
	folio     FolioAllocator
	tickets   TicketDispatcher
	ledger    SalesLedger
	inventory InventoryDeductor
	journal   Journal
	customers CustomerDirectory
	lg        *logger.Logger
	now       Clock
	newID     func() string
}

func NewOrderService(cfg Config, d Deps) *OrderService {
	if cfg.TableCount <= 0 {
		cfg.TableCount = 10
	}
	s := &OrderService{
		orders:    make(map[string]domain.Order),
		cfg:       cfg,
		repo:      d.Orders,
		drafts:    d.Drafts,
		catalog:   d.Catalog,
		folio:     d.Folio,
		tickets:   d.Tickets,
		ledger:    d.Ledger,
		inventory: d.Inventory,
		journal:   d.Journal,
		customers: d.Customers,
		lg:        d.Logger,
		now:       d.Clock,
		newID:     d.NewID,
	}
	if s.lg == nil {
		s.lg = logger.Nop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// staleAttempts bounds how often one operation is replayed after another
// terminal changed the same orders first.
const staleAttempts = 3

// Load refreshes the cache from the store, creates missing tables and puts
// saved drafts back on free tables.
func (s *OrderService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var drafts map[string][]domain.OrderLine
	var repaired int
	err := s.retry(ctx, func() error {
		if err := s.refresh(ctx); err != nil {
			return err
		}
		var err error
		if drafts, err = s.drafts.Drafts(ctx); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStore, err)
		}

		var changed []domain.Order
		for n := 1; n <= s.cfg.TableCount; n++ {
			if _, ok := s.orders[domain.TableID(n)]; !ok {
				changed = append(changed, domain.NewTable(n))
			}
		}
		for _, o := range s.orders {
			if o.MergedInto != "" {
				if _, ok := s.orders[o.MergedInto]; !ok {
					o = o.Clone()
					o.Reset()
					changed = append(changed, o)
				}
			}
		}
		for id, lines := range drafts {
			o, ok := s.orders[id]
			if !ok || len(lines) == 0 || o.Kind != domain.KindTable || o.Status != domain.StatusFree || o.IsMerged() {
				continue
			}
			o = o.Clone()
			o.PendingLines = append([]domain.OrderLine{}, lines...)
			o.Status = domain.StatusOrdering
			changed = append(changed, o)
		}
		repaired = len(changed)
		return s.commit(ctx, changed...)
	})
	if err != nil {
		return err
	}
	s.lg.Info("orders_loaded", map[string]any{"orders": len(s.orders), "drafts": len(drafts), "repaired": repaired})
	return nil
}

// Refresh replaces the cache with the store's current collection.
func (s *OrderService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

// Orders returns a snapshot: tables by number, then ad-hoc tabs newest first.
func (s *OrderService) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind == domain.KindTable
		}
		if a.Kind == domain.KindTable {
			return a.TableNumber < b.TableNumber
		}
		at, bt := startedOrZero(a), startedOrZero(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.ID < b.ID
	})
	return out
}

func (s *OrderService) Get(id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o.Clone(), nil
}

// Open returns the order that serves id, read fresh from the store. A merged
// table opens its master; a non-occupied table gets its parked draft back.
func (s *OrderService) Open(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reread(ctx, id); err != nil {
		return domain.Order{}, err
	}

	var (
		out      domain.Order
		restored int
	)
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		out = o
		if o.Kind != domain.KindTable || o.Status == domain.StatusOccupied || len(o.PendingLines) > 0 {
			return nil
		}
		drafts, err := s.drafts.Drafts(ctx)
		if err != nil {
			s.lg.Error("draft_lookup_failed", err, map[string]any{"order_id": o.ID})
			return nil
		}
		lines := drafts[o.ID]
		if len(lines) == 0 {
			return nil
		}

		next := o.Clone()
		next.PendingLines = append([]domain.OrderLine{}, lines...)
		s.markStarted(&next)
		if err := s.commit(ctx, next); err != nil {
			return err
		}
		out, restored = s.orders[next.ID], len(lines)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	if restored > 0 {
		s.record(ctx, out.ID, domain.EventOpened, map[string]any{"restored_lines": restored})
	}
	return out.Clone(), nil
}

// CreateAdhoc opens a takeout or delivery tab. A customer picked from the
// directory fills in whatever the caller left blank, and the customer is
// remembered for next time.
func (s *OrderService) CreateAdhoc(ctx context.Context, customer domain.Customer, address string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID != "" && s.customers != nil {
		rec, err := s.customers.Get(ctx, customer.ID)
		if err != nil {
			return domain.Order{}, err
		}
		if customer.Name == "" {
			customer.Name = rec.Name
		}
		if customer.Phone == "" {
			customer.Phone = rec.Phone
		}
		if address == "" && len(rec.Addresses) > 0 {
			address = rec.Addresses[0]
		}
	}

	now := s.now()
	if customer.Name == "" {
		customer.Name = "Cliente"
	}
	o := domain.Order{
		ID:              "adhoc-" + s.newID(),
		Kind:            domain.KindAdhoc,
		Name:            domain.AdhocName(customer.Name),
		Status:          domain.StatusOrdering,
		PendingLines:    []domain.OrderLine{},
		CommittedLines:  []domain.OrderLine{},
		StartedAt:       &now,
		Customer:        &customer,
		DeliveryAddress: address,
	}
	if err := s.commit(ctx, o); err != nil {
		return domain.Order{}, err
	}
	if s.customers != nil && (customer.ID != "" || customer.Phone != "") {
		if _, err := s.customers.Remember(ctx, customer, address); err != nil {
			s.lg.Error("customer_save_failed", err, map[string]any{"order_id": o.ID})
		}
	}
	s.record(ctx, o.ID, domain.EventOpened, map[string]any{"customer": customer.Name})
	return s.orders[o.ID].Clone(), nil
}

func (s *OrderService) AddItem(ctx context.Context, id string, req AddItemRequest) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Quantity < 1 {
		return domain.Order{}, domain.ErrInvalidQuantity
	}
	var line domain.OrderLine
	if req.LineIndex == nil {
		item, err := s.catalog.Item(ctx, req.MenuItemID)
		if err != nil {
			return domain.Order{}, err
		}
		line = domain.OrderLine{
			MenuItemID: item.ID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Quantity:   req.Quantity,
			Notes:      req.Notes,
		}
	}

	event := domain.EventItemAdded
	var out domain.Order
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		next := o.Clone()
		if req.LineIndex != nil {
			idx := *req.LineIndex
			if idx < 0 || idx >= len(next.PendingLines) {
				return fmt.Errorf("%w: %d", domain.ErrInvalidLine, idx)
			}
			next.PendingLines[idx].Quantity = req.Quantity
			next.PendingLines[idx].Notes = req.Notes
			event = domain.EventItemChanged
		} else {
			next.PendingLines = append(next.PendingLines, line)
		}
		s.markStarted(&next)

		if err := s.commit(ctx, next); err != nil {
			return err
		}
		out = s.orders[next.ID]
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.record(ctx, out.ID, event, map[string]any{"menu_item_id": req.MenuItemID, "quantity": req.Quantity})
	return out.Clone(), nil
}

// UpdateQuantity edits a pending line; below 1 the line is removed.
func (s *OrderService) UpdateQuantity(ctx context.Context, id string, index, quantity int) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out domain.Order
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(o.PendingLines) {
			return fmt.Errorf("%w: %d", domain.ErrInvalidLine, index)
		}
		next := o.Clone()
		if quantity < 1 {
			next.PendingLines = append(next.PendingLines[:index], next.PendingLines[index+1:]...)
		} else {
			next.PendingLines[index].Quantity = quantity
		}
		if err := s.commit(ctx, next); err != nil {
			return err
		}
		out = s.orders[next.ID]
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.record(ctx, out.ID, domain.EventItemChanged, map[string]any{"index": index, "quantity": quantity})
	return out.Clone(), nil
}

// SendToKitchen moves every pending line to the end of the committed lines
// and prints them on a kitchen ticket.
func (s *OrderService) SendToKitchen(ctx context.Context, id, operator string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reread(ctx, id); err != nil {
		return Result{}, err
	}
	var (
		out  domain.Order
		sent []domain.OrderLine
	)
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		out, sent = o, nil
		if len(o.PendingLines) == 0 {
			return nil
		}

		next := o.Clone()
		if err := s.ensureFolio(ctx, &next); err != nil {
			return err
		}
		sent = next.PendingLines
		next.CommittedLines = append(next.CommittedLines, sent...)
		next.PendingLines = []domain.OrderLine{}
		next.Status = domain.StatusOccupied
		s.markStarted(&next)

		if err := s.commit(ctx, next); err != nil {
			return err
		}
		out = s.orders[next.ID]
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if len(sent) == 0 {
		return Result{Order: out.Clone()}, nil
	}
	metrics.KitchenSends.Inc()

	res := Result{Order: out.Clone()}
	if err := s.drafts.DeleteDraft(ctx, out.ID); err != nil {
		s.lg.Error("draft_delete_failed", err, map[string]any{"order_id": out.ID})
	}
	t := s.ticket(domain.TicketKitchen, out, sent, operator)
	if w := s.dispatch(ctx, t); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	s.record(ctx, out.ID, domain.EventSentToKitchen, map[string]any{
		"lines": len(sent), "order_number": *out.OrderNumber,
	})
	return res, nil
}

// ApplyDiscount stores an absolute discount. Percentages are converted
// against the current subtotal and are not rescaled later.
func (s *OrderService) ApplyDiscount(ctx context.Context, id, input string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out domain.Order
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		next := o.Clone()
		next.Discount = domain.ParseDiscount(input, next.Subtotal())
		if err := s.commit(ctx, next); err != nil {
			return err
		}
		out = s.orders[next.ID]
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.record(ctx, out.ID, domain.EventDiscount, map[string]any{"input": input, "discount": out.Discount.String()})
	return out.Clone(), nil
}

// Park leaves the order screen. Pending lines become a draft; an order with
// nothing on it goes back to free.
func (s *OrderService) Park(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		out     domain.Order
		payload map[string]any
	)
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		out, payload = o, nil
		next := o.Clone()

		if len(next.PendingLines) == 0 {
			if err := s.drafts.DeleteDraft(ctx, next.ID); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrStore, err)
			}
			if len(next.CommittedLines) > 0 || next.Kind != domain.KindTable || next.Status == domain.StatusFree {
				return nil
			}
			next.Reset()
			if err := s.commit(ctx, next); err != nil {
				return err
			}
			out, payload = s.orders[next.ID], map[string]any{"reset": true}
			return nil
		}

		if err := s.drafts.SaveDraft(ctx, next.ID, next.PendingLines); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
		if next.Status != domain.StatusOccupied && next.Status != domain.StatusOrdering {
			next.Status = domain.StatusOrdering
			if err := s.commit(ctx, next); err != nil {
				return err
			}
			out = s.orders[next.ID]
		}
		payload = map[string]any{"draft_lines": len(next.PendingLines)}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	if payload != nil {
		s.record(ctx, out.ID, domain.EventParked, payload)
	}
	return out.Clone(), nil
}

// resolve returns the order that receives operations issued against id.
func (s *OrderService) resolve(id string) (domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if o.MergedInto != "" {
		if m, ok := s.orders[o.MergedInto]; ok {
			return m, nil
		}
	}
	return o, nil
}

func (s *OrderService) followers(masterID string) []domain.Order {
	var out []domain.Order
	for _, o := range s.orders {
		if o.MergedInto == masterID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

// commit persists the given orders together with any merged tables whose
// status must follow their master, then swaps them into the cache.
func (s *OrderService) commit(ctx context.Context, changed ...domain.Order) error {
	now := s.now()
	inSet := make(map[string]bool, len(changed))
	for i := range changed {
		changed[i].UpdatedAt = now
		inSet[changed[i].ID] = true
	}
	batch := append([]domain.Order{}, changed...)
	for _, m := range changed {
		if m.Kind != domain.KindTable || m.IsMerged() {
			continue
		}
		for _, f := range s.followers(m.ID) {
			if inSet[f.ID] || f.Status == m.Status {
				continue
			}
			f.Status = m.Status
			f.UpdatedAt = now
			inSet[f.ID] = true
			batch = append(batch, f)
		}
	}

	if err := s.repo.Save(ctx, batch...); err != nil {
		if errors.Is(err, domain.ErrStaleOrder) {
			return err
		}
		s.lg.Error("order_save_failed", err, map[string]any{"orders": len(batch)})
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	for _, o := range batch {
		o.Version++
		s.orders[o.ID] = o
	}
	return nil
}

// retry runs op and, when another terminal saved one of its orders first,
// reloads the cache and runs it again on the fresh state.
func (s *OrderService) retry(ctx context.Context, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if !errors.Is(err, domain.ErrStaleOrder) || attempt == staleAttempts {
			return err
		}
		metrics.StaleOrderRetries.Inc()
		s.lg.Warn("stale_order_retry", map[string]any{"attempt": attempt, "error": err.Error()})
		if err := s.refresh(ctx); err != nil {
			return err
		}
	}
}

func (s *OrderService) refresh(ctx context.Context) error {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	orders := make(map[string]domain.Order, len(stored))
	for _, o := range stored {
		orders[o.ID] = o
	}
	s.orders = orders
	return nil
}

// reread replaces the cached copy of id, and of its master when merged,
// with the stored one before an operation that may print or do nothing on a
// stale copy. Store errors leave the cache as it is.
func (s *OrderService) reread(ctx context.Context, id string) error {
	o, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		delete(s.orders, id)
		return err
	case err != nil:
		s.lg.Error("order_reread_failed", err, map[string]any{"order_id": id})
		return nil
	}
	s.orders[o.ID] = o
	if o.MergedInto == "" {
		return nil
	}
	if m, err := s.repo.Get(ctx, o.MergedInto); err == nil {
		s.orders[m.ID] = m
	}
	return nil
}

func (s *OrderService) ensureFolio(ctx context.Context, o *domain.Order) error {
	if o.OrderNumber != nil {
		return nil
	}
	n, err := s.folio.Next(ctx)
	if err != nil {
		s.lg.Error("folio_allocation_failed", err, map[string]any{"order_id": o.ID})
		return fmt.Errorf("%w: %v", domain.ErrFolioUnavailable, err)
	}
	o.OrderNumber = &n
	return nil
}

func (s *OrderService) markStarted(o *domain.Order) {
	if o.Status == domain.StatusFree {
		o.Status = domain.StatusOrdering
	}
	if o.StartedAt == nil {
		now := s.now()
		o.StartedAt = &now
	}
}

func (s *OrderService) ticket(kind domain.TicketKind, o domain.Order, lines []domain.OrderLine, operator string) domain.Ticket {
	t := domain.Ticket{
		ID:          s.newID(),
		Kind:        kind,
		OrderID:     o.ID,
		OriginName:  o.OriginName(),
		OrderNumber: o.OrderNumber,
		Lines:       append([]domain.OrderLine{}, lines...),
		Subtotal:    o.Subtotal(),
		Discount:    o.Discount,
		Total:       o.GrandTotal(),
		Operator:    operator,
		IssuedAt:    s.now(),
	}
	if o.Kind == domain.KindAdhoc {
		t.Customer = o.Customer
		t.Address = o.DeliveryAddress
	}
	return t
}

// dispatch never fails the caller; it returns a warning instead.
func (s *OrderService) dispatch(ctx context.Context, t domain.Ticket) string {
	if s.tickets == nil {
		return ""
	}
	if err := s.tickets.Dispatch(ctx, t); err != nil {
		metrics.TicketFailures.WithLabelValues(string(t.Kind)).Inc()
		s.lg.Error("ticket_dispatch_failed", err, map[string]any{"order_id": t.OrderID, "kind": string(t.Kind)})
		return fmt.Sprintf("%s ticket was not printed: %v", t.Kind, err)
	}
	return ""
}

func (s *OrderService) record(ctx context.Context, orderID string, typ domain.EventType, payload map[string]any) {
	if s.journal == nil {
		return
	}
	ev := domain.LifecycleEvent{OrderID: orderID, Type: typ, Payload: payload, OccurredAt: s.now()}
	if err := s.journal.Append(ctx, ev); err != nil {
		s.lg.Error("journal_append_failed", err, map[string]any{"order_id": orderID, "event": string(typ)})
	}
}

func startedOrZero(o domain.Order) time.Time {
	if o.StartedAt == nil {
		return time.Time{}
	}
	return *o.StartedAt
}
