package catalog

import "context"

// Store persists the whole catalog. Save replaces everything previously
// stored; a Load after a successful Save observes exactly that catalog.
type Store interface {
	Load(ctx context.Context) (Catalog, error)
	Save(ctx context.Context, c Catalog) error
	Ping(ctx context.Context) error
}
