package database

import (
	"testing"
	"testing/fstest"
)

func TestMigrationNames(t *testing.T) {
	fsys := fstest.MapFS{
		"002_create_offers.sql":  {Data: []byte("CREATE TABLE offers ();")},
		"001_create_orders.sql":  {Data: []byte("CREATE TABLE orders ();")},
		"010_create_catalog.sql": {Data: []byte("CREATE TABLE menu_items ();")},
		"notes.md":               {Data: []byte("not a migration")},
	}

	names, err := migrationNames(fsys)
	if err != nil {
		t.Fatalf("migrationNames returned error: %v", err)
	}

	want := []string{"001_create_orders.sql", "002_create_offers.sql", "010_create_catalog.sql"}
	if len(names) != len(want) {
		t.Fatalf("got %d migrations, want %d: %v", len(names), len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestMigrationNames_EmptyFS(t *testing.T) {
	names, err := migrationNames(fstest.MapFS{})
	if err != nil {
		t.Fatalf("migrationNames returned error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no migrations, got %v", names)
	}
}
