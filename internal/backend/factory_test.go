package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/store"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/bilancio"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != "postgres://localhost/bilancio" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DataDirectory != "data" {
		t.Errorf("DataDirectory = %q, want data", cfg.DataDirectory)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "sqlite,postgres,memory" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("Casa\nSpesa\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	cats, err := res.Store.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Errorf("expected 2 seeded categories, got %d", len(cats))
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "bilancio.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: dbPath})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if err := res.Store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	keys, err := res.Store.InsertIgnoringDuplicates(ctx, []core.Transaction{{
		ExternalKey: "k1",
		Date:        core.NewDate(2025, 3, 1),
		Description: "Esselunga",
		Amount:      core.Money{Cents: 1250},
		Currency:    "EUR",
		Type:        core.Expense,
	}})
	if err != nil || len(keys) != 1 {
		t.Fatalf("insert: keys=%v err=%v", keys, err)
	}
	count, err := res.Store.CountTransactions(ctx, store.TransactionFilter{})
	if err != nil || count != 1 {
		t.Fatalf("count: %d err=%v", count, err)
	}

	version, dirty, err := MigrationVersion(Config{Type: SQLiteBackend, SQLiteDBPath: dbPath})
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version == 0 || dirty {
		t.Errorf("version = %d dirty = %v after open", version, dirty)
	}
}

func TestMigrateMemoryBackend(t *testing.T) {
	if err := MigrateUp(Config{Type: MemoryBackend}); err == nil {
		t.Error("memory backend has no schema and should refuse to migrate")
	}
}
