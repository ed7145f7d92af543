package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/customer/repository"
)

const searchLimit = 50

var ErrNameRequired = errors.New("customer name is required")

type CustomerServiceInterface interface {
	Search(ctx context.Context, query string) ([]domain.CustomerRecord, error)
	Get(ctx context.Context, id string) (domain.CustomerRecord, error)
	Save(ctx context.Context, c domain.CustomerRecord) (domain.CustomerRecord, error)
	Remember(ctx context.Context, c domain.Customer, address string) (domain.CustomerRecord, error)
}

type CustomerService struct {
	repo repository.CustomerRepositoryInterface
	now  func() time.Time
}

func NewCustomerService(repo repository.CustomerRepositoryInterface) *CustomerService {
	return &CustomerService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *CustomerService) Search(ctx context.Context, query string) ([]domain.CustomerRecord, error) {
	return s.repo.Search(ctx, query, searchLimit)
}

func (s *CustomerService) Get(ctx context.Context, id string) (domain.CustomerRecord, error) {
	return s.repo.Get(ctx, id)
}

// Save creates or edits a directory entry. A new entry whose phone is
// already known updates that customer instead of adding a duplicate.
func (s *CustomerService) Save(ctx context.Context, c domain.CustomerRecord) (domain.CustomerRecord, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return domain.CustomerRecord{}, ErrNameRequired
	}
	c.Addresses = addAddresses(nil, c.Addresses...)

	switch {
	case c.ID != "":
		prev, err := s.repo.Get(ctx, c.ID)
		if err != nil {
			return domain.CustomerRecord{}, err
		}
		c.CreatedAt = prev.CreatedAt
	default:
		prev, err := s.byPhone(ctx, c.Phone)
		if err != nil {
			return domain.CustomerRecord{}, err
		}
		if prev.ID != "" {
			c.ID, c.CreatedAt = prev.ID, prev.CreatedAt
			c.Addresses = addAddresses(prev.Addresses, c.Addresses...)
		} else {
			c.ID, c.CreatedAt = uuid.NewString(), s.now()
		}
	}
	c.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, c); err != nil {
		return domain.CustomerRecord{}, err
	}
	return c, nil
}

// Remember records the customer of a takeout or delivery tab: the picked
// entry, or the one with the same phone, gains the address; an unknown
// phone becomes a new entry.
func (s *CustomerService) Remember(ctx context.Context, c domain.Customer, address string) (domain.CustomerRecord, error) {
	var (
		rec domain.CustomerRecord
		err error
	)
	if c.ID != "" {
		rec, err = s.repo.Get(ctx, c.ID)
	} else {
		rec, err = s.byPhone(ctx, strings.TrimSpace(c.Phone))
	}
	if err != nil {
		return domain.CustomerRecord{}, err
	}
	if rec.ID == "" {
		if strings.TrimSpace(c.Phone) == "" {
			return domain.CustomerRecord{}, nil
		}
		return s.Save(ctx, domain.CustomerRecord{Name: c.Name, Phone: c.Phone, Addresses: []string{address}})
	}
	if strings.TrimSpace(c.Name) != "" {
		rec.Name = c.Name
	}
	rec.Addresses = append(rec.Addresses, address)
	return s.Save(ctx, rec)
}

// byPhone returns the zero record when nobody has the phone.
func (s *CustomerService) byPhone(ctx context.Context, phone string) (domain.CustomerRecord, error) {
	if phone == "" {
		return domain.CustomerRecord{}, nil
	}
	rec, err := s.repo.ByPhone(ctx, phone)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return domain.CustomerRecord{}, nil
	}
	if err != nil {
		return domain.CustomerRecord{}, fmt.Errorf("lookup customer by phone: %w", err)
	}
	return rec, nil
}

func addAddresses(have []string, more ...string) []string {
	out := make([]string, 0, len(have)+len(more))
	seen := make(map[string]bool)
	for _, a := range append(append([]string{}, have...), more...) {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
