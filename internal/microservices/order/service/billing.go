package service

import (
	"context"
	"errors"
	"fmt"

	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
)

type VoidRequest struct {
	Authorized bool
	Operator   string
}

type PaymentRequest struct {
	Method   string
	Tip      string
	Operator string
}

type PaymentResult struct {
	Sale     domain.SaleRecord `json:"sale"`
	Queued   bool              `json:"queued"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Void cancels the active order behind id. The caller verifies the PIN; only
// the outcome reaches here. Voiding a free, empty table does nothing.
func (s *OrderService) Void(ctx context.Context, id string, req VoidRequest) (Result, error) {
	if !req.Authorized {
		return Result{}, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reread(ctx, id); err != nil {
		return Result{}, err
	}
	var (
		before, after domain.Order
		noop          bool
	)
	err := s.retry(ctx, func() error {
		o, err := s.resolve(id)
		if err != nil {
			return err
		}
		before = o.Clone()
		noop = o.Kind == domain.KindTable && o.Status == domain.StatusFree &&
			len(o.PendingLines) == 0 && len(o.CommittedLines) == 0 && len(s.followers(o.ID)) == 0
		if noop {
			return nil
		}
		after, err = s.clear(ctx, before)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if noop {
		return Result{Order: before}, nil
	}
	metrics.OrdersVoided.Inc()

	res := Result{Order: after}
	t := s.ticket(domain.TicketCancellation, before, before.AllItems(), req.Operator)
	if w := s.dispatch(ctx, t); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	s.lg.Info("order_voided", map[string]any{"order_id": before.ID, "operator": req.Operator, "total": before.GrandTotal().String()})
	s.record(ctx, before.ID, domain.EventVoided, map[string]any{"operator": req.Operator, "lines": len(before.AllItems())})
	return res, nil
}

// FinalizePayment closes the bill. The sale must reach the ledger or its
// local retry queue before the order is cleared; printing and stock
// deduction failures only produce warnings.
func (s *OrderService) FinalizePayment(ctx context.Context, id string, req PaymentRequest) (PaymentResult, error) {
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		return PaymentResult{}, err
	}
	tip := domain.ParseAmount(req.Tip)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reread(ctx, id); err != nil {
		return PaymentResult{}, err
	}
	// Claiming the order is a versioned save: it fails when another
	// terminal changed or paid the order since this cache read it, and it
	// persists the folio before the ledger call so a retried payment
	// reuses it.
	var o domain.Order
	err = s.retry(ctx, func() error {
		cur, err := s.resolve(id)
		if err != nil {
			return err
		}
		if len(cur.AllItems()) == 0 {
			return domain.ErrEmptyOrder
		}
		next := cur.Clone()
		if err := s.ensureFolio(ctx, &next); err != nil {
			return err
		}
		if err := s.commit(ctx, next); err != nil {
			return err
		}
		o = s.orders[next.ID]
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	items := o.AllItems()

	sale := domain.SaleRecord{
		ID:            s.newID(),
		OrderID:       o.ID,
		OrderNumber:   *o.OrderNumber,
		OriginName:    o.OriginName(),
		Items:         items,
		Subtotal:      o.Subtotal(),
		Discount:      o.Discount,
		Tip:           tip,
		Total:         o.GrandTotal(),
		PaymentMethod: method,
		Operator:      req.Operator,
		Status:        domain.SaleCompleted,
		CreatedAt:     s.now(),
	}

	queued, err := s.ledger.Record(ctx, sale)
	if err != nil {
		s.lg.Error("sale_not_saved", err, map[string]any{"order_id": o.ID, "order_number": sale.OrderNumber})
		return PaymentResult{}, fmt.Errorf("%w: %v", domain.ErrSaleNotSaved, err)
	}
	metrics.SalesFinalized.WithLabelValues(string(method)).Inc()

	res := PaymentResult{Sale: sale, Queued: queued}
	if queued {
		res.Warnings = append(res.Warnings, "ledger unavailable, sale queued for retry")
	}

	t := s.ticket(domain.TicketCustomer, o, items, req.Operator)
	t.Tip = tip
	t.PaymentMethod = method
	if w := s.dispatch(ctx, t); w != "" {
		res.Warnings = append(res.Warnings, w)
	}

	if s.inventory != nil {
		if err := s.inventory.Deduct(ctx, sale.ID, items); err != nil {
			s.lg.Error("inventory_deduction_failed", err, map[string]any{"sale_id": sale.ID})
			res.Warnings = append(res.Warnings, fmt.Sprintf("inventory not updated: %v", err))
		}
	}

	// The sale is recorded at this point; a failed reset must not make the
	// order payable a second time.
	if _, err := s.clear(ctx, o); err != nil {
		s.forget(o)
		res.Warnings = append(res.Warnings, fmt.Sprintf("order reset not persisted: %v", err))
	}

	s.lg.Info("sale_finalized", map[string]any{
		"order_id": o.ID, "order_number": sale.OrderNumber, "total": sale.Total.String(),
		"method": string(method), "queued": queued,
	})
	s.record(ctx, o.ID, domain.EventPaid, map[string]any{
		"sale_id": sale.ID, "order_number": sale.OrderNumber, "total": sale.Total.String(),
	})
	return res, nil
}

// PreCheck prints the current bill without closing it or taking a folio.
func (s *OrderService) PreCheck(ctx context.Context, id, operator string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reread(ctx, id); err != nil {
		return Result{}, err
	}
	o, err := s.resolve(id)
	if err != nil {
		return Result{}, err
	}
	items := o.AllItems()
	if len(items) == 0 {
		return Result{}, domain.ErrEmptyOrder
	}
	t := s.ticket(domain.TicketPreCheck, o, items, operator)
	t.OrderNumber = nil
	t.PaymentMethod = domain.PaymentPending

	res := Result{Order: o.Clone()}
	if w := s.dispatch(ctx, t); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	s.record(ctx, o.ID, domain.EventPreCheck, map[string]any{"total": o.GrandTotal().String()})
	return res, nil
}

// clear resets a table together with the tables merged into it, or removes
// an ad-hoc order. It returns the order as it is afterwards.
func (s *OrderService) clear(ctx context.Context, o domain.Order) (domain.Order, error) {
	if o.Kind == domain.KindAdhoc {
		if err := s.repo.Delete(ctx, o.ID, o.Version); err != nil {
			if errors.Is(err, domain.ErrStaleOrder) {
				return domain.Order{}, err
			}
			return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
		delete(s.orders, o.ID)
		s.deleteDraft(ctx, o.ID)
		return domain.Order{}, nil
	}

	batch := []domain.Order{o.Clone()}
	batch[0].Reset()
	for _, f := range s.followers(o.ID) {
		f.Reset()
		batch = append(batch, f)
	}
	if err := s.commit(ctx, batch...); err != nil {
		return domain.Order{}, err
	}
	for _, b := range batch {
		s.deleteDraft(ctx, b.ID)
	}
	return s.orders[o.ID].Clone(), nil
}

// forget applies a reset to the cache only.
func (s *OrderService) forget(o domain.Order) {
	if o.Kind == domain.KindAdhoc {
		delete(s.orders, o.ID)
		return
	}
	for _, f := range s.followers(o.ID) {
		f.Reset()
		s.orders[f.ID] = f
	}
	o.Reset()
	s.orders[o.ID] = o
}

func (s *OrderService) deleteDraft(ctx context.Context, id string) {
	if err := s.drafts.DeleteDraft(ctx, id); err != nil {
		s.lg.Error("draft_delete_failed", err, map[string]any{"order_id": id})
	}
}
