package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry owns the ledgers of live sessions. A ledger is created on first
// use and discarded by End, or by Expire once Options.SessionTTL has passed.
type Registry struct {
	inv     Inventory
	journal Journal
	opts    Options
	log     *zap.Logger

	mu      sync.Mutex
	ledgers map[string]*Ledger
	expires map[string]time.Time
}

func NewRegistry(inv Inventory, journal Journal, opts Options, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		inv:     inv,
		journal: journal,
		opts:    opts,
		log:     log,
		ledgers: map[string]*Ledger{},
		expires: map[string]time.Time{},
	}
}

func (r *Registry) Ledger(session string) *Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.ledgers[session]
	if !ok {
		l = NewLedger(session, r.inv, r.journal, r.opts, r.log)
		r.ledgers[session] = l
		if r.opts.SessionTTL > 0 {
			r.expires[session] = r.opts.Now().Add(r.opts.SessionTTL)
		}
	}
	return l
}

// End returns the session's reservations to stock and forgets the session.
// The ledger is detached before it is closed, so a request racing with End
// either has its reservation released or gets ErrSessionClosed.
func (r *Registry) End(ctx context.Context, session string) error {
	r.mu.Lock()
	l, ok := r.ledgers[session]
	exp, hasExp := r.expires[session]
	delete(r.ledgers, session)
	delete(r.expires, session)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := l.Close(ctx); err != nil {
		r.mu.Lock()
		if _, taken := r.ledgers[session]; !taken {
			r.ledgers[session] = l
			if hasExp {
				r.expires[session] = exp
			}
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

// Expire ends every session whose TTL ran out at or before now and returns
// their IDs. Sessions that fail to release stay registered for the next sweep.
func (r *Registry) Expire(ctx context.Context, now time.Time) []string {
	r.mu.Lock()
	var stale []string
	for id, exp := range r.expires {
		if !now.Before(exp) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()
	sort.Strings(stale)

	ended := make([]string, 0, len(stale))
	for _, id := range stale {
		if err := r.End(ctx, id); err != nil {
			r.log.Warn("expire session failed", zap.String("session_id", id), zap.Error(err))
			continue
		}
		ended = append(ended, id)
	}
	if len(ended) > 0 {
		r.log.Info("expired cart sessions", zap.Int("sessions", len(ended)))
	}
	return ended
}

// RunExpiry sweeps expired sessions every interval until ctx is done.
func (r *Registry) RunExpiry(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Expire(ctx, r.opts.Now())
		}
	}
}

func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.ledgers))
	for id := range r.ledgers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reconcile returns every reservation left in the journal by a previous
// process to stock, then clears the journal. Products that no longer exist
// are skipped.
func Reconcile(ctx context.Context, journal Journal, inv Inventory, log *zap.Logger) (map[string]int64, error) {
	if log == nil {
		log = zap.NewNop()
	}

	open, err := journal.Load()
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return map[string]int64{}, nil
	}

	c, err := inv.List(ctx)
	if err != nil {
		return nil, err
	}

	release := map[string]int64{}
	for session, entries := range open {
		for _, e := range entries {
			if e.Quantity <= 0 {
				continue
			}
			if c.Index(e.Name) < 0 {
				log.Warn("reconcile: unknown product",
					zap.String("session_id", session),
					zap.String("product", e.Name),
					zap.Int64("quantity", e.Quantity))
				continue
			}
			release[e.Name] += e.Quantity
		}
	}

	if err := inv.Release(ctx, release); err != nil {
		return nil, err
	}
	if err := journal.Clear(); err != nil {
		return nil, err
	}

	log.Info("reconciled abandoned carts",
		zap.Int("sessions", len(open)),
		zap.Int("products", len(release)))
	return release, nil
}
