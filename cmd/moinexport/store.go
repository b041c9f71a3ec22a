package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	moinmoin "github.com/escapewindow/ep-moinmoin-export"
	"github.com/escapewindow/ep-moinmoin-export/internal/config"
	"github.com/escapewindow/ep-moinmoin-export/padstore"
)

type writableBackend interface {
	padstore.Backend
	padstore.Putter
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore returns the pad source selected by cfg and a closer releasing it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (moinmoin.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreHTTP:
		logger.Debug("using etherpad", "url", cfg.EtherpadURL)
		return &padstore.HTTPSource{
			BaseURL: cfg.EtherpadURL,
			Client:  &http.Client{Timeout: 30 * time.Second},
		}, nopCloser{}, nil
	case config.StoreMemory:
		mem := padstore.NewMemory()
		ids, err := importFile(ctx, cfg.Fixture, mem)
		if err != nil {
			return nil, nil, fmt.Errorf("load fixture %s: %w", cfg.Fixture, err)
		}
		logger.Debug("fixture loaded", "file", cfg.Fixture, "pads", len(ids))
		store := padstore.New(mem, padstore.WithLogger(logger))
		return store, store, nil
	default:
		backend, err := openWritable(cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("store opened", "store", cfg.Store, "db", cfg.DB)
		store := padstore.New(backend, padstore.WithLogger(logger))
		return store, store, nil
	}
}

func openWritable(cfg config.Config) (writableBackend, error) {
	switch cfg.Store {
	case config.StoreBolt, config.StoreSQLite:
	default:
		return nil, fmt.Errorf("store %q is read-only; use bolt or sqlite", cfg.Store)
	}
	if dir := filepath.Dir(cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if cfg.Store == config.StoreSQLite {
		return padstore.OpenSQLite(cfg.DB)
	}
	return padstore.OpenBolt(cfg.DB)
}

// importFile loads a YAML fixture (.yaml, .yml) or an Etherpad export into dst.
func importFile(ctx context.Context, path string, dst padstore.Putter) ([]string, error) {
	f, err := os.Open(normalizePath(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return padstore.LoadYAML(ctx, f, dst)
	default:
		return padstore.LoadEtherpad(ctx, f, dst)
	}
}
