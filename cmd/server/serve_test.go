package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/soaringjerry/quizly/internal/config"
	"github.com/soaringjerry/quizly/internal/models"
)

func TestOpenStoreSQLiteMigratesAndPersists(t *testing.T) {
	ctx := context.Background()
	var cfg config.Config
	cfg.Store.Kind = config.StoreSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "nested", "quizly.db")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	u := &models.User{ID: "U1", Email: "ann@example.com", PassHash: []byte("h"), CreatedAt: time.Now()}
	if err := store.InsertUser(ctx, u); err != nil {
		t.Fatalf("InsertUser: %v", err)
	}
	closeStore()

	store, closeStore, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer closeStore()
	got, err := store.GetUser(ctx, "U1")
	if err != nil || got == nil || got.Email != "ann@example.com" {
		t.Fatalf("GetUser after reopen = %+v, %v", got, err)
	}
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	var cfg config.Config
	cfg.Store.Kind = config.StoreMemory
	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeStore()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestQuizCacheDisabledWithoutRedis(t *testing.T) {
	var cfg config.Config
	reader, closeCache := quizCache(context.Background(), cfg, nil)
	defer closeCache()
	if reader != nil {
		t.Fatalf("expected no cache when redis address is empty")
	}
}
