package database

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestConfigURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss/word", Name: "cbr", SSLMode: "disable"}
	got := cfg.URL()
	if got != "postgres://bot:p%40ss%2Fword@db:5432/cbr?sslmode=disable" {
		t.Fatalf("URL = %s", got)
	}
	if red := cfg.Redacted(); strings.Contains(red, "word") || !strings.Contains(red, "xxxxx") {
		t.Fatalf("Redacted leaks password: %s", red)
	}
	if cfg.String() != "bot@db:5432/cbr" {
		t.Fatalf("String = %s", cfg.String())
	}
}

func TestMigrationsDirDefault(t *testing.T) {
	if (Config{}).migrationsDir() != "migrations" {
		t.Fatalf("unexpected default migrations dir")
	}
	if (Config{MigrationsDir: "/srv/sql"}).migrationsDir() != "/srv/sql" {
		t.Fatalf("explicit migrations dir ignored")
	}
}

func TestUpMigrationsAndApplied(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	files := upMigrations(dir)
	if !reflect.DeepEqual(files, []string{"0001_a.up.sql", "0002_b.up.sql"}) {
		t.Fatalf("files = %v", files)
	}
	if got := appliedBetween(files, 1, 2); !reflect.DeepEqual(got, []string{"0002_b.up.sql"}) {
		t.Fatalf("applied = %v", got)
	}
	if got := appliedBetween(files, 2, 2); len(got) != 0 {
		t.Fatalf("nothing should be applied, got %v", got)
	}
	if upMigrations(filepath.Join(dir, "missing")) != nil {
		t.Fatalf("missing dir should list nothing")
	}
}

func TestConnectGivesUpAtDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	cfg := Config{Host: "127.0.0.1", Port: "1", User: "u", Name: "n", SSLMode: "disable"}
	if _, err := connect(ctx, cfg, 20*time.Millisecond); err == nil {
		t.Fatalf("expected connect error")
	}
}
