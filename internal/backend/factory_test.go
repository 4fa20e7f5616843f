package backend

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBackendTypeIsValid(t *testing.T) {
	tests := []struct {
		bt   BackendType
		want bool
	}{
		{SQLiteBackend, true},
		{PostgresBackend, true},
		{MemoryBackend, true},
		{BackendType("mongodb"), false},
		{BackendType(""), false},
	}
	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.want {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.want)
		}
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend(memory) error = %v", err)
	}
	if result.Store == nil {
		t.Fatal("Store is nil")
	}
	if result.Cleanup != nil {
		t.Error("memory backend should need no cleanup")
	}

	if _, err := result.Store.ListRecurringItems(context.Background()); err != nil {
		t.Errorf("ListRecurringItems() error = %v", err)
	}
}

func TestCreateBackendInvalidType(t *testing.T) {
	factory := NewFactory(nil)

	if _, err := factory.CreateBackend(context.Background(), Config{Type: "mongodb"}); err == nil {
		t.Error("CreateBackend(mongodb) = nil error, want error")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	factory := NewFactory(nil)
	dbPath := filepath.Join(t.TempDir(), "fintrack.db")

	result, err := factory.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: dbPath,
	})
	if err != nil {
		t.Fatalf("CreateBackend(sqlite) error = %v", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	}()

	if result.Cleanup == nil {
		t.Fatal("sqlite backend missing cleanup")
	}
	if _, err := result.Store.ListDebts(context.Background()); err != nil {
		t.Errorf("ListDebts() error = %v", err)
	}
}
