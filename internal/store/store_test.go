package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesFileInWALMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New("/nonexistent/dir/history.db"); err == nil {
		t.Error("New on missing directory returned nil error")
	}
}

func TestTx(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		fnErr     error
		wantCount int
	}{
		{"commit", nil, 1},
		{"rollback", errBoom, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tempDB(t)
			if _, err := s.DB().ExecContext(ctx, "CREATE TABLE cams (name TEXT)"); err != nil {
				t.Fatalf("create table: %v", err)
			}
			err := s.Tx(ctx, func(tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, "INSERT INTO cams (name) VALUES ('cam1')"); err != nil {
					return err
				}
				return tt.fnErr
			})
			if !errors.Is(err, tt.fnErr) {
				t.Fatalf("Tx error = %v, want %v", err, tt.fnErr)
			}
			var n int
			if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM cams").Scan(&n); err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != tt.wantCount {
				t.Errorf("rows = %d, want %d", n, tt.wantCount)
			}
		})
	}
}

func TestMigrate_AppliesOnceAndRecords(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	calls := 0
	migrations := []Migration{
		{Version: 1, Description: "create cams", Up: func(tx *sql.Tx) error {
			calls++
			_, err := tx.Exec("CREATE TABLE cams (id INTEGER PRIMARY KEY, name TEXT)")
			return err
		}},
		{Version: 2, Description: "add zone", Up: func(tx *sql.Tx) error {
			calls++
			_, err := tx.Exec("ALTER TABLE cams ADD COLUMN zone TEXT")
			return err
		}},
	}

	for range 2 {
		if err := s.Migrate(ctx, "demo", migrations); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("Up called %d times, want 2", calls)
	}
	if _, err := s.DB().ExecContext(ctx, "INSERT INTO cams (name, zone) VALUES ('cam1', 'zoneA')"); err != nil {
		t.Errorf("insert after migration: %v", err)
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations WHERE schema_name = 'demo'").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("recorded migrations = %d, want 2", n)
	}
}

func TestMigrate_FailureKeepsEarlierSteps(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 1, Description: "ok", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE partial (id INTEGER)")
			return err
		}},
		{Version: 2, Description: "broken", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("NOT SQL")
			return err
		}},
	}
	if err := s.Migrate(ctx, "partial", migrations); err == nil {
		t.Fatal("Migrate with broken step returned nil error")
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations WHERE schema_name = 'partial'").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("recorded migrations = %d, want 1", n)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name       string
		sequence   []string
		wantErr    error
		wantStored string
	}{
		{"first run", []string{"0.4.0"}, nil, "0.4.0"},
		{"same version", []string{"0.4.0", "0.4.0"}, nil, "0.4.0"},
		{"upgrade", []string{"0.4.0", "v0.5.0"}, nil, "v0.5.0"},
		{"downgrade rejected", []string{"0.5.0", "0.4.0"}, ErrNewerSchema, "0.5.0"},
		{"dev passes", []string{"0.5.0", "dev", "0.1.0"}, nil, "0.1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tempDB(t)
			ctx := context.Background()

			var err error
			for _, v := range tt.sequence {
				err = s.CheckVersion(ctx, v)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckVersion error = %v, want %v", err, tt.wantErr)
			}

			var stored string
			if err := s.DB().QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored); err != nil {
				t.Fatalf("query stored version: %v", err)
			}
			if stored != tt.wantStored {
				t.Errorf("stored version = %q, want %q", stored, tt.wantStored)
			}
		})
	}
}
