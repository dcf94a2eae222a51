package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Service applies validated mutations to the stored catalog. Every call
// re-reads the store, and every successful mutation is flushed before it
// returns. Mutations are serialised so there is exactly one writer.
type Service struct {
	store Store
	log   *zap.Logger

	mu sync.Mutex
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) List(ctx context.Context) (Catalog, error) {
	return s.store.Load(ctx)
}

func (s *Service) Get(ctx context.Context, name string) (Product, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return Product{}, err
	}
	p, ok := c.Get(name)
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrProductNotFound, name)
	}
	return p, nil
}

func (s *Service) AddStock(ctx context.Context, name string, delta int64) (Product, error) {
	return s.mutate(ctx, name, func(c Catalog) (Catalog, error) {
		return c.WithStockAdded(name, delta)
	})
}

func (s *Service) UpdatePrice(ctx context.Context, name string, price int64) (Product, error) {
	return s.mutate(ctx, name, func(c Catalog) (Catalog, error) {
		return c.WithPrice(name, price)
	})
}

func (s *Service) AddProduct(ctx context.Context, p Product) (Product, error) {
	name := strings.TrimSpace(p.Name)
	return s.mutate(ctx, name, func(c Catalog) (Catalog, error) {
		return c.WithProduct(name, p.Quantity, p.Price)
	})
}

func (s *Service) Reserve(ctx context.Context, name string, quantity int64) (Product, error) {
	return s.mutate(ctx, name, func(c Catalog) (Catalog, error) {
		return c.WithReservation(name, quantity)
	})
}

func (s *Service) Adjust(ctx context.Context, name string, delta int64) (Product, error) {
	return s.mutate(ctx, name, func(c Catalog) (Catalog, error) {
		return c.WithAdjustment(name, delta)
	})
}

// Release returns reserved quantities to stock in one flush.
func (s *Service) Release(ctx context.Context, quantities map[string]int64) error {
	if len(quantities) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	next, err := c.WithReleased(quantities)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.log.Error("catalog save failed", zap.Error(err), zap.Int("released", len(quantities)))
		return err
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, name string, apply func(Catalog) (Catalog, error)) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return Product{}, err
	}

	next, err := apply(c)
	if err != nil {
		return Product{}, err
	}

	if err := s.store.Save(ctx, next); err != nil {
		s.log.Error("catalog save failed", zap.Error(err), zap.String("product", name))
		return Product{}, err
	}

	p, _ := next.Get(name)
	return p, nil
}
