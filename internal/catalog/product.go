package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("price must not be negative")
	ErrInvalidName       = errors.New("product name required")
	ErrDuplicateProduct  = errors.New("duplicate product name")
)

type Product struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
}

// Catalog is an ordered product list keyed by name. Mutating methods never
// touch the receiver; they return a modified copy or an error.
type Catalog []Product

func (c Catalog) Index(name string) int {
	for i, p := range c {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (c Catalog) Get(name string) (Product, bool) {
	i := c.Index(name)
	if i < 0 {
		return Product{}, false
	}
	return c[i], true
}

func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}

// Validate checks the catalog-wide invariants: unique non-empty names and
// non-negative quantities and prices.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, p := range c {
		if strings.TrimSpace(p.Name) == "" {
			return ErrInvalidName
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateProduct, p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.Quantity < 0 {
			return fmt.Errorf("%w: %q has %d on hand", ErrInvalidQuantity, p.Name, p.Quantity)
		}
		if p.Price < 0 {
			return fmt.Errorf("%q: %w", p.Name, ErrInvalidPrice)
		}
	}
	return nil
}

func (c Catalog) WithStockAdded(name string, delta int64) (Catalog, error) {
	if delta <= 0 {
		return nil, ErrInvalidQuantity
	}
	i := c.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
	}
	if !fits(c[i].Quantity, delta) {
		return nil, fmt.Errorf("%w: %q adding %d overflows stock", ErrInvalidQuantity, name, delta)
	}

	out := c.Clone()
	out[i].Quantity += delta
	return out, nil
}

func (c Catalog) WithPrice(name string, price int64) (Catalog, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	i := c.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
	}

	out := c.Clone()
	out[i].Price = price
	return out, nil
}

// WithProduct appends a new product, or merges quantity into an existing one
// of the same name. The existing price is kept on merge.
func (c Catalog) WithProduct(name string, quantity, price int64) (Catalog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}

	if c.Index(name) >= 0 {
		if quantity == 0 {
			return c.Clone(), nil
		}
		return c.WithStockAdded(name, quantity)
	}

	out := append(c.Clone(), Product{Name: name, Quantity: quantity, Price: price})
	return out, nil
}

// WithReservation deducts quantity from the product's on-hand stock. An empty
// shelf rejects any amount.
func (c Catalog) WithReservation(name string, quantity int64) (Catalog, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	i := c.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
	}

	onHand := c[i].Quantity
	if onHand == 0 || quantity > onHand {
		return nil, fmt.Errorf("%w: %q requested %d, available %d", ErrInsufficientStock, name, quantity, onHand)
	}

	out := c.Clone()
	out[i].Quantity -= quantity
	return out, nil
}

// WithAdjustment applies a signed reservation change: a positive delta takes
// stock, a negative delta returns it.
func (c Catalog) WithAdjustment(name string, delta int64) (Catalog, error) {
	switch {
	case delta > 0:
		return c.WithReservation(name, delta)
	case delta < 0:
		return c.WithReleased(map[string]int64{name: -delta})
	default:
		if c.Index(name) < 0 {
			return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
		}
		return c.Clone(), nil
	}
}

// WithReleased returns reserved quantities to stock. All names are checked
// before anything is applied.
func (c Catalog) WithReleased(quantities map[string]int64) (Catalog, error) {
	for name, qty := range quantities {
		if qty <= 0 {
			return nil, fmt.Errorf("%w: %q release %d", ErrInvalidQuantity, name, qty)
		}
		i := c.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
		}
		if !fits(c[i].Quantity, qty) {
			return nil, fmt.Errorf("%w: %q release %d overflows stock", ErrInvalidQuantity, name, qty)
		}
	}

	out := c.Clone()
	for name, qty := range quantities {
		out[out.Index(name)].Quantity += qty
	}
	return out, nil
}

// fits reports whether onHand+delta stays within int64.
func fits(onHand, delta int64) bool {
	return delta <= math.MaxInt64-onHand
}
