package service

import (
	"context"
	"fmt"
	"sort"

	"restaurant-pos/internal/domain"
)

// Merge attaches targetID to the table sourceID so both share one bill. The
// target loses its own lines and follows the source's status.
func (s *OrderService) Merge(ctx context.Context, sourceID, targetID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var src, next domain.Order
	err := s.retry(ctx, func() error {
		var ok bool
		if src, ok = s.orders[sourceID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, sourceID)
		}
		target, ok := s.orders[targetID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, targetID)
		}
		if err := s.mergeAllowed(src, target); err != nil {
			return err
		}

		next = target.Clone()
		next.Reset()
		next.MergedInto = src.ID
		next.Status = src.Status
		// The source is saved too so a merge never lands on a source that
		// another terminal has since paid or changed.
		if err := s.commit(ctx, src.Clone(), next); err != nil {
			return err
		}
		src = s.orders[src.ID]
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.drafts.DeleteDraft(ctx, next.ID); err != nil {
		s.lg.Error("draft_delete_failed", err, map[string]any{"order_id": next.ID})
	}
	s.lg.Info("tables_merged", map[string]any{"source": src.ID, "target": next.ID})
	s.record(ctx, src.ID, domain.EventMerged, map[string]any{"table": next.ID})
	return src.Clone(), nil
}

func (s *OrderService) mergeAllowed(src, target domain.Order) error {
	switch {
	case src.Kind != domain.KindTable || target.Kind != domain.KindTable:
		return fmt.Errorf("%w: only tables can be merged", domain.ErrMergeNotAllowed)
	case src.ID == target.ID:
		return fmt.Errorf("%w: a table cannot be merged into itself", domain.ErrMergeNotAllowed)
	case src.IsMerged():
		return fmt.Errorf("%w: table %s is already merged into %s", domain.ErrMergeNotAllowed, src.ID, src.MergedInto)
	case target.IsMerged():
		return fmt.Errorf("%w: table %s is already merged", domain.ErrMergeNotAllowed, target.ID)
	case target.Status == domain.StatusOccupied:
		return fmt.Errorf("%w: table %s is occupied", domain.ErrMergeNotAllowed, target.ID)
	case len(s.followers(target.ID)) > 0:
		return fmt.Errorf("%w: table %s has tables merged into it", domain.ErrMergeNotAllowed, target.ID)
	}
	return nil
}

// MergeCandidates lists the tables id could absorb.
func (s *OrderService) MergeCandidates(id string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	var out []domain.Order
	for _, o := range s.orders {
		if s.mergeAllowed(src, o) == nil {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out, nil
}

// Unmerge releases every table merged into the active order of id.
func (s *OrderService) Unmerge(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		master domain.Order
		ids    []string
	)
	err := s.retry(ctx, func() error {
		var err error
		if master, err = s.resolve(id); err != nil {
			return err
		}
		released := s.followers(master.ID)
		ids = ids[:0]
		for i := range released {
			released[i].Reset()
			ids = append(ids, released[i].ID)
		}
		return s.commit(ctx, released...)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(ids) == 0 {
		return master.Clone(), nil
	}
	s.record(ctx, master.ID, domain.EventUnmerged, map[string]any{"tables": ids})
	return master.Clone(), nil
}
