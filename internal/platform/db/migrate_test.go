package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_links.sql":    "CREATE TABLE care_links (id UUID PRIMARY KEY);",
		"001_users.sql":    "CREATE TABLE users (id UUID PRIMARY KEY);",
		"010_calls.sql":    "CREATE TABLE call_sessions (id UUID PRIMARY KEY);",
		"notes.txt":        "not a migration",
		"README.sql":       "missing numeric prefix",
		"003_vitals.sql":   "CREATE TABLE vital_samples (id UUID PRIMARY KEY);",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(migrations))
	}

	wantVersions := []int{1, 2, 3, 10}
	for i, w := range wantVersions {
		if migrations[i].Version != w {
			t.Errorf("migration %d: expected version %d, got %d", i, w, migrations[i].Version)
		}
	}

	if migrations[0].Name != "001_users.sql" {
		t.Errorf("expected first migration 001_users.sql, got %s", migrations[0].Name)
	}
	if migrations[0].SQL == "" {
		t.Error("expected migration SQL to be loaded")
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
