package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniMart/internal/assets"
	"MiniMart/internal/cart"
	"MiniMart/internal/catalog"
	"MiniMart/internal/config"
	"MiniMart/internal/pos"
	"MiniMart/internal/session"
	"MiniMart/pkg/kit"
)

const service = "pos"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := kit.NewLogger(service, "info")
		log.Fatal("config", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	log.Info("config loaded", cfg.Fields()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("catalog store", zap.Error(err))
	}
	defer closeStore()

	inventory := catalog.NewService(store, log)

	if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755); err != nil {
		log.Fatal("journal dir", zap.Error(err))
	}
	journal := cart.NewFileJournal(cfg.JournalPath)

	if cfg.ReconcileOnStart {
		released, err := cart.Reconcile(ctx, journal, inventory, log)
		if err != nil {
			log.Fatal("reconcile", zap.Error(err))
		}
		log.Info("reconcile done", zap.Int("products", len(released)))
	}

	carts := cart.NewRegistry(inventory, journal, cart.Options{
		ReceiptTitle: cfg.ReceiptTitle,
		Currency:     cfg.Currency,
		SessionTTL:   cfg.SessionTTL,
	}, log)
	go carts.RunExpiry(ctx, cfg.SessionSweep)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &pos.Server{
		Catalog:     inventory,
		Carts:       carts,
		Tokens:      session.NewTokenMaker(cfg.SessionSecret, cfg.SessionTTL),
		Assets:      assets.Dir{Root: cfg.AssetDir},
		Log:         log,
		ReceiptPath: cfg.ReceiptPath,
	}

	h := pos.NewHandler(s, pos.HTTPDeps{
		Log:                log,
		Service:            service,
		Registry:           reg,
		MetricsEnabled:     cfg.MetricsEnabled,
		MetricsToken:       cfg.MetricsToken,
		SessionLimitPerMin: cfg.SessionLimitPerMin,
	})

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (catalog.Store, func(), error) {
	if cfg.CatalogDSN != "" {
		db, err := catalog.OpenPostgres(ctx, cfg.CatalogDSN)
		if err != nil {
			return nil, nil, err
		}
		st := catalog.NewPostgresStore(db)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("catalog backed by postgres")
		return st, func() { _ = db.Close() }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.CatalogPath), 0o755); err != nil {
		return nil, nil, err
	}
	log.Info("catalog backed by file", zap.String("path", cfg.CatalogPath))
	return catalog.NewFileStore(cfg.CatalogPath), func() {}, nil
}
