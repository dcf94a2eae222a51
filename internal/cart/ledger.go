package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"MiniMart/internal/catalog"
	"MiniMart/internal/receipt"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotInCart = errors.New("product not in cart")

	ErrSessionClosed = errors.New("cart session closed")
)

// Inventory is the stock side of the reservation protocol.
type Inventory interface {
	Reserve(ctx context.Context, name string, quantity int64) (catalog.Product, error)
	Adjust(ctx context.Context, name string, delta int64) (catalog.Product, error)
	Release(ctx context.Context, quantities map[string]int64) error
	List(ctx context.Context) (catalog.Catalog, error)
}

type Entry struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type Options struct {
	ReceiptTitle string
	Currency     string
	Now          func() time.Time

	// SessionTTL bounds how long a Registry keeps a cart open. Zero keeps
	// carts until End.
	SessionTTL time.Duration
}

// Ledger holds the reservations of one cart session. Every change to an entry
// is mirrored by the inverse change to on-hand stock, so for each product
// on-hand plus reserved stays constant until checkout.
type Ledger struct {
	id      string
	inv     Inventory
	journal Journal
	opts    Options
	log     *zap.Logger

	mu     sync.Mutex
	order  []string
	qty    map[string]int64
	closed bool
}

func NewLedger(id string, inv Inventory, journal Journal, opts Options, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		id:      id,
		inv:     inv,
		journal: journal,
		opts:    opts,
		log:     log.With(zap.String("session_id", id)),
		qty:     map[string]int64{},
	}
}

func (l *Ledger) ID() string { return l.id }

func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entriesLocked()
}

func (l *Ledger) Reserve(ctx context.Context, name string, quantity int64) (Entry, error) {
	if quantity <= 0 {
		return Entry{}, catalog.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Entry{}, ErrSessionClosed
	}
	if _, err := l.inv.Reserve(ctx, name, quantity); err != nil {
		return Entry{}, err
	}

	if _, ok := l.qty[name]; !ok {
		l.order = append(l.order, name)
	}
	l.qty[name] += quantity
	l.persistLocked()

	return Entry{Name: name, Quantity: l.qty[name]}, nil
}

// PlanUpdate returns the stock delta needed to move a reservation from
// current to next. Positive deltas take stock, negative deltas return it.
func PlanUpdate(current, next int64) (int64, error) {
	if next <= 0 {
		return 0, catalog.ErrInvalidQuantity
	}
	return next - current, nil
}

func (l *Ledger) UpdateQuantity(ctx context.Context, name string, quantity int64) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Entry{}, ErrSessionClosed
	}
	current, ok := l.qty[name]
	if !ok {
		if quantity <= 0 {
			return Entry{}, catalog.ErrInvalidQuantity
		}
		return Entry{}, fmt.Errorf("%w: %q", ErrNotInCart, name)
	}

	delta, err := PlanUpdate(current, quantity)
	if err != nil {
		return Entry{}, err
	}
	if delta != 0 {
		if _, err := l.inv.Adjust(ctx, name, delta); err != nil {
			return Entry{}, err
		}
	}

	l.qty[name] = quantity
	l.persistLocked()

	return Entry{Name: name, Quantity: quantity}, nil
}

// Reset returns every reservation to stock and empties the cart.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releaseLocked(ctx)
}

// Close resets the cart and refuses any later reservation on this ledger.
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.releaseLocked(ctx); err != nil {
		return err
	}
	l.closed = true
	return nil
}

func (l *Ledger) releaseLocked(ctx context.Context) error {
	if len(l.order) == 0 {
		return nil
	}

	release := make(map[string]int64, len(l.qty))
	for name, q := range l.qty {
		release[name] = q
	}
	if err := l.inv.Release(ctx, release); err != nil {
		return err
	}

	l.clearLocked()
	return nil
}

// Preview prices the current cart without finalising it.
func (l *Ledger) Preview(ctx context.Context) (receipt.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.receiptLocked(ctx)
}

// Checkout finalises the reservations as a sale. Stock is not returned.
func (l *Ledger) Checkout(ctx context.Context) (receipt.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, err := l.receiptLocked(ctx)
	if err != nil {
		return receipt.Receipt{}, err
	}

	l.clearLocked()
	return r, nil
}

func (l *Ledger) receiptLocked(ctx context.Context) (receipt.Receipt, error) {
	if len(l.order) == 0 {
		return receipt.Receipt{}, ErrEmptyCart
	}

	c, err := l.inv.List(ctx)
	if err != nil {
		return receipt.Receipt{}, err
	}

	lines := make([]receipt.Line, 0, len(l.order))
	for _, name := range l.order {
		p, ok := c.Get(name)
		if !ok {
			return receipt.Receipt{}, fmt.Errorf("%w: %q", catalog.ErrProductNotFound, name)
		}
		lines = append(lines, receipt.Line{Name: name, Quantity: l.qty[name], UnitPrice: p.Price})
	}

	return receipt.New(l.opts.ReceiptTitle, l.opts.Currency, lines, l.opts.Now())
}

func (l *Ledger) entriesLocked() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, Entry{Name: name, Quantity: l.qty[name]})
	}
	return out
}

func (l *Ledger) clearLocked() {
	l.order = nil
	l.qty = map[string]int64{}
	l.persistLocked()
}

// persistLocked mirrors the cart into the journal. Journal failures are
// logged, not returned.
func (l *Ledger) persistLocked() {
	if l.journal == nil {
		return
	}

	var err error
	if len(l.order) == 0 {
		err = l.journal.Delete(l.id)
	} else {
		err = l.journal.Put(l.id, l.entriesLocked())
	}
	if err != nil {
		l.log.Warn("cart journal write failed", zap.Error(err))
	}
}
