package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/catalog/repository"
)

// AllCategories selects every product.
const AllCategories = "Todos"

type CatalogServiceInterface interface {
	Item(ctx context.Context, id string) (domain.MenuItem, error)
	ItemByName(ctx context.Context, name string) (domain.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, category, query string) ([]domain.MenuItem, error)
	Save(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error)
	Delete(ctx context.Context, id string) error
}

type CatalogService struct {
	repo      repository.MenuRepositoryInterface
	preferred []string
}

func NewCatalogService(repo repository.MenuRepositoryInterface, preferred []string) *CatalogService {
	return &CatalogService{repo: repo, preferred: preferred}
}

func (s *CatalogService) Item(ctx context.Context, id string) (domain.MenuItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *CatalogService) ItemByName(ctx context.Context, name string) (domain.MenuItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return domain.MenuItem{}, err
	}
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Name), strings.TrimSpace(name)) {
			return it, nil
		}
	}
	return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, name)
}

// Categories lists "Todos", then the preferred order, then any other
// category in the order it first appears in the menu.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return OrderCategories(s.preferred, items), nil
}

func OrderCategories(preferred []string, items []domain.MenuItem) []string {
	seen := map[string]bool{AllCategories: true}
	out := []string{AllCategories}
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range preferred {
		add(c)
	}
	for _, it := range items {
		add(it.Category)
	}
	return out
}

// Search filters by category and case-insensitive substring. Names that
// start with the query come first; otherwise menu order is kept.
func (s *CatalogService) Search(ctx context.Context, category, query string) ([]domain.MenuItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(items, category, query), nil
}

func Rank(items []domain.MenuItem, category, query string) []domain.MenuItem {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.MenuItem, 0, len(items))
	for _, it := range items {
		if category != "" && category != AllCategories && it.Category != category {
			continue
		}
		if !strings.Contains(strings.ToLower(it.Name), q) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.HasPrefix(strings.ToLower(out[i].Name), q) &&
			!strings.HasPrefix(strings.ToLower(out[j].Name), q)
	})
	return out
}

func (s *CatalogService) Save(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Category == "" {
		item.Category = "Otros"
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
