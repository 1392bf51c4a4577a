package sqlitemigrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/0001_init.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE widgets (id TEXT PRIMARY KEY);
-- +migrate Down
DROP TABLE widgets;
`)},
		"migrations/0002_more.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
ALTER TABLE widgets ADD COLUMN label TEXT NOT NULL DEFAULT '';
`)},
		"migrations/README.md": &fstest.MapFile{Data: []byte("ignored")},
	}
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := Open(ctx, dbPath, testMigrations(), "migrations")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO widgets (id, label) VALUES ('w1', 'first')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := Apply(ctx, db, testMigrations(), "migrations"); err != nil {
		t.Fatalf("reapply: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+migrationTable).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("applied migrations = %d, want 2", count)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count); err != nil {
		t.Fatalf("count widgets: %v", err)
	}
	if count != 1 {
		t.Fatalf("widgets = %d, want 1", count)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRejectsBlankPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "  ", testMigrations(), "migrations"); err == nil {
		t.Fatal("expected blank path error")
	}
}

func TestApplyRejectsMissingInputs(t *testing.T) {
	t.Parallel()

	if err := Apply(context.Background(), nil, testMigrations(), "migrations"); err == nil {
		t.Fatal("expected nil db error")
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "SELECT 1;", want: "SELECT 1;"},
		{name: "up only", content: "-- +migrate Up\nSELECT 1;", want: "\nSELECT 1;"},
		{name: "up and down", content: "-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;", want: "\nSELECT 1;\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := UpSection(tc.content); got != tc.want {
				t.Fatalf("UpSection() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsAlreadyExists(t *testing.T) {
	t.Parallel()

	if !IsAlreadyExists(errors.New("table widgets already exists")) {
		t.Fatal("expected already exists match")
	}
	if !IsAlreadyExists(errors.New("Duplicate column name: label")) {
		t.Fatal("expected duplicate column match")
	}
	if IsAlreadyExists(errors.New("syntax error")) || IsAlreadyExists(nil) {
		t.Fatal("unexpected match")
	}
}
