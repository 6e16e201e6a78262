package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestMigrationFilesAreSequential(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.sql$`)
	seen := map[string]string{}
	var versions []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			t.Fatalf("migration %q does not match NNNN_name.sql", name)
		}
		version := match[1]
		if prev, ok := seen[version]; ok {
			t.Fatalf("duplicate migration version %s: %s and %s", version, prev, name)
		}
		seen[version] = name
		versions = append(versions, version)
	}

	if len(versions) == 0 {
		t.Fatal("no migrations discovered")
	}
	for i, version := range versions {
		want := fmt.Sprintf("%04d", i+1)
		if version != want {
			t.Fatalf("expected version %s at position %d, got %s", want, i, version)
		}
	}
}

func TestMigrationFilesAreNonEmpty(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if strings.TrimSpace(string(contents)) == "" {
			t.Fatalf("migration %s is empty", entry.Name())
		}
	}
}
